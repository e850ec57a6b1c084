package teamsnap

import (
	"context"

	"github.com/alexjbarnes/teamsnap-mcp/internal/collection"
)

// Mode is the process-wide write switch, fixed at construction from
// configuration and never mutated afterwards.
type Mode int

const (
	// ModeReadOnly rejects every mutating call before any HTTP request
	// is issued. The safe default for assistant-driven use.
	ModeReadOnly Mode = iota

	// ModeReadWrite allows mutations.
	ModeReadWrite
)

func (m Mode) String() string {
	if m == ModeReadWrite {
		return "read-write"
	}

	return "read-only"
}

// ToolClient is the assistant-facing variant of the API client. It is
// safe for concurrent tool invocations: the underlying Client holds no
// per-call state beyond the token record, whose refresh races are
// tolerated (idempotent refresh, last write wins). Every mutating call
// consults the Mode first and fails fast in read-only mode.
type ToolClient struct {
	c    *Client
	mode Mode
}

// NewToolClient wraps a Client with the given mode.
func NewToolClient(c *Client, mode Mode) *ToolClient {
	return &ToolClient{c: c, mode: mode}
}

// Mode returns the write switch this client was constructed with.
func (t *ToolClient) Mode() Mode { return t.mode }

// gate rejects mutations in read-only mode before any request is built.
func (t *ToolClient) gate(operation string) error {
	if t.mode == ModeReadOnly {
		return &WriteDisabledError{Operation: operation}
	}

	return nil
}

// --- Read operations ---

// Me returns the authenticated user.
func (t *ToolClient) Me(ctx context.Context) (*collection.Record, error) {
	return t.c.Me(ctx)
}

// ListTeams returns the first page of teams, optionally filtered by user.
func (t *ToolClient) ListTeams(ctx context.Context, userID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Teams.Search(ctx, TeamQuery{UserID: userID}))
}

// GetTeam returns one team.
func (t *ToolClient) GetTeam(ctx context.Context, id int64) (*collection.Record, error) {
	return t.c.Teams.Get(ctx, id)
}

// ListMembers returns a team's members.
func (t *ToolClient) ListMembers(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Members.Search(ctx, MemberQuery{TeamID: teamID}))
}

// GetMember returns one member.
func (t *ToolClient) GetMember(ctx context.Context, id int64) (*collection.Record, error) {
	return t.c.Members.Get(ctx, id)
}

// ListEvents returns a team's events.
func (t *ToolClient) ListEvents(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Events.Search(ctx, EventQuery{TeamID: teamID}))
}

// GetEvent returns one event.
func (t *ToolClient) GetEvent(ctx context.Context, id int64) (*collection.Record, error) {
	return t.c.Events.Get(ctx, id)
}

// ListAvailabilities returns availabilities for an event and/or member.
func (t *ToolClient) ListAvailabilities(ctx context.Context, eventID, memberID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Availabilities.Search(ctx, AvailabilityQuery{EventID: eventID, MemberID: memberID}))
}

// ListAssignments returns assignments for a team and/or event.
func (t *ToolClient) ListAssignments(ctx context.Context, teamID, eventID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Assignments.Search(ctx, AssignmentQuery{TeamID: teamID, EventID: eventID}))
}

// ListLocations returns a team's locations.
func (t *ToolClient) ListLocations(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Locations.Search(ctx, LocationQuery{TeamID: teamID}))
}

// ListOpponents returns a team's opponents.
func (t *ToolClient) ListOpponents(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Opponents.Search(ctx, OpponentQuery{TeamID: teamID}))
}

// ListForumTopics returns a team's message board topics.
func (t *ToolClient) ListForumTopics(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.ForumTopics.Search(ctx, teamID))
}

// ListForumPosts returns message board posts for a team and/or topic.
func (t *ToolClient) ListForumPosts(ctx context.Context, teamID, topicID int64) ([]*collection.Record, error) {
	return firstPage(t.c.ForumPosts.Search(ctx, ForumPostQuery{TeamID: teamID, ForumTopicID: topicID}))
}

// ListBroadcastEmails returns broadcast emails sent to a team.
func (t *ToolClient) ListBroadcastEmails(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.BroadcastEmails.Search(ctx, teamID))
}

// ListMessages returns a team's messages.
func (t *ToolClient) ListMessages(ctx context.Context, teamID int64) ([]*collection.Record, error) {
	return firstPage(t.c.Messages.Search(ctx, teamID))
}

// --- Write operations (mode-gated) ---

// CreateEvent creates an event.
func (t *ToolClient) CreateEvent(ctx context.Context, f EventFields) (*collection.Record, error) {
	if err := t.gate("create_event"); err != nil {
		return nil, err
	}

	return t.c.Events.Create(ctx, f)
}

// UpdateEvent patches fields on an event.
func (t *ToolClient) UpdateEvent(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	if err := t.gate("update_event"); err != nil {
		return nil, err
	}

	return t.c.Events.Update(ctx, id, fields)
}

// DeleteEvent deletes an event.
func (t *ToolClient) DeleteEvent(ctx context.Context, id int64) error {
	if err := t.gate("delete_event"); err != nil {
		return err
	}

	return t.c.Events.Delete(ctx, id)
}

// CreateMember creates a team member.
func (t *ToolClient) CreateMember(ctx context.Context, f MemberFields) (*collection.Record, error) {
	if err := t.gate("create_member"); err != nil {
		return nil, err
	}

	return t.c.Members.Create(ctx, f)
}

// UpdateMember patches fields on a member.
func (t *ToolClient) UpdateMember(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	if err := t.gate("update_member"); err != nil {
		return nil, err
	}

	return t.c.Members.Update(ctx, id, fields)
}

// DeleteMember deletes a member.
func (t *ToolClient) DeleteMember(ctx context.Context, id int64) error {
	if err := t.gate("delete_member"); err != nil {
		return err
	}

	return t.c.Members.Delete(ctx, id)
}

// UpdateAvailability sets a member's availability status for an event.
func (t *ToolClient) UpdateAvailability(ctx context.Context, id int64, status string) (*collection.Record, error) {
	if err := t.gate("update_availability"); err != nil {
		return nil, err
	}

	return t.c.Availabilities.UpdateStatus(ctx, id, status)
}

// CreateAssignment creates an assignment.
func (t *ToolClient) CreateAssignment(ctx context.Context, f AssignmentFields) (*collection.Record, error) {
	if err := t.gate("create_assignment"); err != nil {
		return nil, err
	}

	return t.c.Assignments.Create(ctx, f)
}

// DeleteAssignment deletes an assignment.
func (t *ToolClient) DeleteAssignment(ctx context.Context, id int64) error {
	if err := t.gate("delete_assignment"); err != nil {
		return err
	}

	return t.c.Assignments.Delete(ctx, id)
}

// CreateLocation creates a location.
func (t *ToolClient) CreateLocation(ctx context.Context, f LocationFields) (*collection.Record, error) {
	if err := t.gate("create_location"); err != nil {
		return nil, err
	}

	return t.c.Locations.Create(ctx, f)
}

// UpdateLocation patches fields on a location.
func (t *ToolClient) UpdateLocation(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	if err := t.gate("update_location"); err != nil {
		return nil, err
	}

	return t.c.Locations.Update(ctx, id, fields)
}

// DeleteLocation deletes a location.
func (t *ToolClient) DeleteLocation(ctx context.Context, id int64) error {
	if err := t.gate("delete_location"); err != nil {
		return err
	}

	return t.c.Locations.Delete(ctx, id)
}

// firstPage unwraps a search to its first page of records, matching
// the tool surface: assistants page explicitly when they need more.
func firstPage(page *Page, err error) ([]*collection.Record, error) {
	if err != nil {
		return nil, err
	}

	return page.Records, nil
}
