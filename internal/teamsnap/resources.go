package teamsnap

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/alexjbarnes/teamsnap-mcp/internal/collection"
)

// service is the shared plumbing behind every entity service: the
// uniform search/get/create/update/delete shapes over one resource
// path. Entity services wrap it with their own typed inputs.
type service struct {
	client *Client
	name   string
}

func (s *service) search(ctx context.Context, query url.Values) (*Page, error) {
	return s.client.getPage(ctx, "/"+s.name+"/search", query)
}

func (s *service) get(ctx context.Context, id int64) (*collection.Record, error) {
	return s.client.getOne(ctx, fmt.Sprintf("/%s/%d", s.name, id))
}

func (s *service) create(ctx context.Context, fields *collection.Record) (*collection.Record, error) {
	return s.client.writeItem(ctx, http.MethodPost, "/"+s.name, fields)
}

func (s *service) update(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	return s.client.writeItem(ctx, http.MethodPatch, fmt.Sprintf("/%s/%d", s.name, id), fields)
}

func (s *service) delete(ctx context.Context, id int64) error {
	return s.client.deleteItem(ctx, fmt.Sprintf("/%s/%d", s.name, id))
}

// setID adds an id filter to query when the id is non-zero. TeamSnap
// search endpoints treat missing filters as "all visible".
func setID(q url.Values, key string, id int64) url.Values {
	if id == 0 {
		return q
	}

	if q == nil {
		q = url.Values{}
	}

	q.Set(key, strconv.FormatInt(id, 10))

	return q
}

// --- Teams ---

// TeamsService operates on /teams.
type TeamsService struct{ s service }

// TeamQuery filters team searches.
type TeamQuery struct {
	UserID int64
}

// Search returns teams visible to the given user (or all visible teams
// when UserID is zero).
func (t *TeamsService) Search(ctx context.Context, q TeamQuery) (*Page, error) {
	return t.s.search(ctx, setID(nil, "user_id", q.UserID))
}

// Get returns one team.
func (t *TeamsService) Get(ctx context.Context, id int64) (*collection.Record, error) {
	return t.s.get(ctx, id)
}

// --- Members ---

// MembersService operates on /members.
type MembersService struct{ s service }

// MemberQuery filters member searches.
type MemberQuery struct {
	TeamID int64
}

// MemberFields holds the create body for a member.
type MemberFields struct {
	TeamID    int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (f MemberFields) record() *collection.Record {
	rec := collection.NewRecord()
	rec.Set("team_id", f.TeamID)
	rec.Set("first_name", f.FirstName)
	rec.Set("last_name", f.LastName)

	if f.Email != "" {
		rec.Set("email", f.Email)
	}

	if f.Phone != "" {
		rec.Set("phone", f.Phone)
	}

	return rec
}

func (m *MembersService) Search(ctx context.Context, q MemberQuery) (*Page, error) {
	return m.s.search(ctx, setID(nil, "team_id", q.TeamID))
}

func (m *MembersService) Get(ctx context.Context, id int64) (*collection.Record, error) {
	return m.s.get(ctx, id)
}

func (m *MembersService) Create(ctx context.Context, f MemberFields) (*collection.Record, error) {
	return m.s.create(ctx, f.record())
}

// Update patches the given fields on a member.
func (m *MembersService) Update(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	return m.s.update(ctx, id, fields)
}

func (m *MembersService) Delete(ctx context.Context, id int64) error {
	return m.s.delete(ctx, id)
}

// --- Events ---

// EventsService operates on /events.
type EventsService struct{ s service }

// EventQuery filters event searches.
type EventQuery struct {
	TeamID int64
}

// EventFields holds the create body for an event. StartDate is an ISO
// 8601 timestamp string, e.g. "2025-01-15T14:00:00Z".
type EventFields struct {
	TeamID     int64
	Name       string
	StartDate  string
	LocationID int64
	OpponentID int64
	Notes      string
	IsGame     bool
}

func (f EventFields) record() *collection.Record {
	rec := collection.NewRecord()
	rec.Set("team_id", f.TeamID)
	rec.Set("name", f.Name)
	rec.Set("start_date", f.StartDate)
	rec.Set("is_game", f.IsGame)

	if f.LocationID != 0 {
		rec.Set("location_id", f.LocationID)
	}

	if f.OpponentID != 0 {
		rec.Set("opponent_id", f.OpponentID)
	}

	if f.Notes != "" {
		rec.Set("notes", f.Notes)
	}

	return rec
}

func (e *EventsService) Search(ctx context.Context, q EventQuery) (*Page, error) {
	return e.s.search(ctx, setID(nil, "team_id", q.TeamID))
}

func (e *EventsService) Get(ctx context.Context, id int64) (*collection.Record, error) {
	return e.s.get(ctx, id)
}

func (e *EventsService) Create(ctx context.Context, f EventFields) (*collection.Record, error) {
	return e.s.create(ctx, f.record())
}

func (e *EventsService) Update(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	return e.s.update(ctx, id, fields)
}

func (e *EventsService) Delete(ctx context.Context, id int64) error {
	return e.s.delete(ctx, id)
}

// --- Availabilities ---

// AvailabilitiesService operates on /availabilities. Availabilities
// are created server-side per member and event; only status updates
// are modeled.
type AvailabilitiesService struct{ s service }

// AvailabilityQuery filters availability searches.
type AvailabilityQuery struct {
	EventID  int64
	MemberID int64
}

func (a *AvailabilitiesService) Search(ctx context.Context, q AvailabilityQuery) (*Page, error) {
	values := setID(nil, "event_id", q.EventID)
	values = setID(values, "member_id", q.MemberID)

	return a.s.search(ctx, values)
}

// UpdateStatus sets a member's availability for an event. Valid
// statuses are "yes", "no", "maybe" and "unknown".
func (a *AvailabilitiesService) UpdateStatus(ctx context.Context, id int64, status string) (*collection.Record, error) {
	rec := collection.NewRecord()
	rec.Set("status", status)

	return a.s.update(ctx, id, rec)
}

// --- Assignments ---

// AssignmentsService operates on /assignments.
type AssignmentsService struct{ s service }

// AssignmentQuery filters assignment searches.
type AssignmentQuery struct {
	TeamID  int64
	EventID int64
}

// AssignmentFields holds the create body for an assignment.
type AssignmentFields struct {
	EventID     int64
	MemberID    int64
	Description string
}

func (f AssignmentFields) record() *collection.Record {
	rec := collection.NewRecord()
	rec.Set("event_id", f.EventID)
	rec.Set("member_id", f.MemberID)
	rec.Set("description", f.Description)

	return rec
}

func (a *AssignmentsService) Search(ctx context.Context, q AssignmentQuery) (*Page, error) {
	values := setID(nil, "team_id", q.TeamID)
	values = setID(values, "event_id", q.EventID)

	return a.s.search(ctx, values)
}

func (a *AssignmentsService) Create(ctx context.Context, f AssignmentFields) (*collection.Record, error) {
	return a.s.create(ctx, f.record())
}

func (a *AssignmentsService) Update(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	return a.s.update(ctx, id, fields)
}

func (a *AssignmentsService) Delete(ctx context.Context, id int64) error {
	return a.s.delete(ctx, id)
}

// --- Locations ---

// LocationsService operates on /locations.
type LocationsService struct{ s service }

// LocationQuery filters location searches.
type LocationQuery struct {
	TeamID int64
}

// LocationFields holds the create body for a location.
type LocationFields struct {
	TeamID  int64
	Name    string
	Address string
}

func (f LocationFields) record() *collection.Record {
	rec := collection.NewRecord()
	rec.Set("team_id", f.TeamID)
	rec.Set("name", f.Name)

	if f.Address != "" {
		rec.Set("address", f.Address)
	}

	return rec
}

func (l *LocationsService) Search(ctx context.Context, q LocationQuery) (*Page, error) {
	return l.s.search(ctx, setID(nil, "team_id", q.TeamID))
}

func (l *LocationsService) Get(ctx context.Context, id int64) (*collection.Record, error) {
	return l.s.get(ctx, id)
}

func (l *LocationsService) Create(ctx context.Context, f LocationFields) (*collection.Record, error) {
	return l.s.create(ctx, f.record())
}

func (l *LocationsService) Update(ctx context.Context, id int64, fields *collection.Record) (*collection.Record, error) {
	return l.s.update(ctx, id, fields)
}

func (l *LocationsService) Delete(ctx context.Context, id int64) error {
	return l.s.delete(ctx, id)
}

// --- Opponents ---

// OpponentsService operates on /opponents. Read-only.
type OpponentsService struct{ s service }

// OpponentQuery filters opponent searches.
type OpponentQuery struct {
	TeamID int64
}

func (o *OpponentsService) Search(ctx context.Context, q OpponentQuery) (*Page, error) {
	return o.s.search(ctx, setID(nil, "team_id", q.TeamID))
}

func (o *OpponentsService) Get(ctx context.Context, id int64) (*collection.Record, error) {
	return o.s.get(ctx, id)
}

// --- Message board and mail (read-only) ---

// ForumTopicsService operates on /forum_topics.
type ForumTopicsService struct{ s service }

func (f *ForumTopicsService) Search(ctx context.Context, teamID int64) (*Page, error) {
	return f.s.search(ctx, setID(nil, "team_id", teamID))
}

// ForumPostsService operates on /forum_posts.
type ForumPostsService struct{ s service }

// ForumPostQuery filters forum post searches.
type ForumPostQuery struct {
	TeamID       int64
	ForumTopicID int64
}

func (f *ForumPostsService) Search(ctx context.Context, q ForumPostQuery) (*Page, error) {
	values := setID(nil, "team_id", q.TeamID)
	values = setID(values, "forum_topic_id", q.ForumTopicID)

	return f.s.search(ctx, values)
}

// BroadcastEmailsService operates on /broadcast_emails.
type BroadcastEmailsService struct{ s service }

func (b *BroadcastEmailsService) Search(ctx context.Context, teamID int64) (*Page, error) {
	return b.s.search(ctx, setID(nil, "team_id", teamID))
}

// MessagesService operates on /messages.
type MessagesService struct{ s service }

func (m *MessagesService) Search(ctx context.Context, teamID int64) (*Page, error) {
	return m.s.search(ctx, setID(nil, "team_id", teamID))
}
