// Package mcpserver registers MCP tools that expose TeamSnap
// operations. It adapts the tool client to the MCP SDK's tool handler
// interface: an explicit registry built once at startup, one handler
// per tool, every error rendered as a short human-readable message
// with a remediation hint.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/teamsnap-mcp/internal/collection"
	"github.com/alexjbarnes/teamsnap-mcp/internal/teamsnap"
)

// RegisterTools adds all TeamSnap tools to the given MCP server. Write
// tools are registered even in read-only mode so the assistant gets
// the remediation message instead of an unknown-tool error.
func RegisterTools(server *mcp.Server, client *teamsnap.ToolClient) {
	registerReadTools(server, client)
	registerWriteTools(server, client)
}

func registerReadTools(server *mcp.Server, client *teamsnap.ToolClient) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_teams",
		Description: "List all teams visible to the authenticated user, optionally filtered by user ID. Use this first to discover team IDs.",
	}, listTeamsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_team_details",
		Description: "Get full details for one team by ID.",
	}, teamDetailsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_members",
		Description: "List the members (roster) of a team.",
	}, listMembersHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_member_details",
		Description: "Get full details for one team member by ID.",
	}, memberDetailsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_events",
		Description: "List a team's events (games, practices and other scheduled items).",
	}, listEventsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_event_details",
		Description: "Get full details for one event by ID.",
	}, eventDetailsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_event_availability",
		Description: "List member availability responses for an event (who is coming, who is not, who has not answered).",
	}, availabilityHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_assignments",
		Description: "List assignments (tasks given to members), filtered by team and/or event.",
	}, listAssignmentsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_locations",
		Description: "List a team's saved locations (fields, venues).",
	}, listLocationsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_opponents",
		Description: "List a team's opponents.",
	}, listOpponentsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_forum_topics",
		Description: "List a team's message board topics.",
	}, listForumTopicsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_forum_posts",
		Description: "List message board posts, filtered by team and/or topic.",
	}, listForumPostsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_broadcast_emails",
		Description: "List broadcast emails sent to a team.",
	}, listBroadcastEmailsHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_messages",
		Description: "List a team's messages.",
	}, listMessagesHandler(client))
}

func registerWriteTools(server *mcp.Server, client *teamsnap.ToolClient) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_event",
		Description: "Create a new event (game or practice) for a team. Requires write mode.",
	}, createEventHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_event",
		Description: "Update fields on an existing event. Requires write mode.",
	}, updateEventHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_event",
		Description: "Delete an event. Requires write mode.",
	}, deleteEventHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_member",
		Description: "Add a member to a team's roster. Requires write mode.",
	}, createMemberHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_member",
		Description: "Update fields on an existing member. Requires write mode.",
	}, updateMemberHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_member",
		Description: "Remove a member from a team. Requires write mode.",
	}, deleteMemberHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_availability",
		Description: "Set a member's availability for an event (yes, no, maybe, unknown). Requires write mode.",
	}, updateAvailabilityHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_assignment",
		Description: "Assign a task to a member for an event. Requires write mode.",
	}, createAssignmentHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_assignment",
		Description: "Delete an assignment. Requires write mode.",
	}, deleteAssignmentHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_location",
		Description: "Create a saved location for a team. Requires write mode.",
	}, createLocationHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_location",
		Description: "Update fields on an existing location. Requires write mode.",
	}, updateLocationHandler(client))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_location",
		Description: "Delete a location. Requires write mode.",
	}, deleteLocationHandler(client))
}

// --- Input types ---
// The MCP SDK infers JSON schema from these struct types via jsonschema tags.

// ListTeamsInput holds parameters for list_teams.
type ListTeamsInput struct {
	UserID int64 `json:"user_id,omitempty" jsonschema:"filter teams by user ID, 0 means all visible"`
}

// IDInput is the shared one-field input for get/delete style tools.
type IDInput struct {
	ID int64 `json:"id" jsonschema:"required,entity ID"`
}

// TeamScopedInput holds parameters for team-scoped list tools.
type TeamScopedInput struct {
	TeamID int64 `json:"team_id" jsonschema:"required,team ID"`
}

// AvailabilityInput holds parameters for get_event_availability.
type AvailabilityInput struct {
	EventID  int64 `json:"event_id" jsonschema:"required,event ID"`
	MemberID int64 `json:"member_id,omitempty" jsonschema:"optional member ID filter"`
}

// AssignmentsInput holds parameters for list_assignments.
type AssignmentsInput struct {
	TeamID  int64 `json:"team_id,omitempty" jsonschema:"filter by team ID"`
	EventID int64 `json:"event_id,omitempty" jsonschema:"filter by event ID"`
}

// ForumPostsInput holds parameters for list_forum_posts.
type ForumPostsInput struct {
	TeamID       int64 `json:"team_id,omitempty" jsonschema:"filter by team ID"`
	ForumTopicID int64 `json:"forum_topic_id,omitempty" jsonschema:"filter by topic ID"`
}

// CreateEventInput holds parameters for create_event.
type CreateEventInput struct {
	TeamID     int64  `json:"team_id" jsonschema:"required,team ID"`
	Name       string `json:"name" jsonschema:"required,event name"`
	StartDate  string `json:"start_date" jsonschema:"required,ISO 8601 start time, e.g. 2025-01-15T14:00:00Z"`
	LocationID int64  `json:"location_id,omitempty" jsonschema:"optional location ID"`
	OpponentID int64  `json:"opponent_id,omitempty" jsonschema:"optional opponent ID for games"`
	Notes      string `json:"notes,omitempty" jsonschema:"optional notes"`
	IsGame     bool   `json:"is_game,omitempty" jsonschema:"true for a game, false for practice or other"`
}

// UpdateInput holds parameters for field-patch tools: an entity ID and
// a free-form field map, applied in the order the client sent them.
type UpdateInput struct {
	ID     int64                  `json:"id" jsonschema:"required,entity ID"`
	Fields map[string]interface{} `json:"fields" jsonschema:"required,field names mapped to new values"`
}

// CreateMemberInput holds parameters for create_member.
type CreateMemberInput struct {
	TeamID    int64  `json:"team_id" jsonschema:"required,team ID"`
	FirstName string `json:"first_name" jsonschema:"required,first name"`
	LastName  string `json:"last_name" jsonschema:"required,last name"`
	Email     string `json:"email,omitempty" jsonschema:"optional email address"`
	Phone     string `json:"phone,omitempty" jsonschema:"optional phone number"`
}

// UpdateAvailabilityInput holds parameters for update_availability.
type UpdateAvailabilityInput struct {
	AvailabilityID int64  `json:"availability_id" jsonschema:"required,availability ID"`
	Status         string `json:"status" jsonschema:"required,one of yes/no/maybe/unknown"`
}

// CreateAssignmentInput holds parameters for create_assignment.
type CreateAssignmentInput struct {
	EventID     int64  `json:"event_id" jsonschema:"required,event ID"`
	MemberID    int64  `json:"member_id" jsonschema:"required,member ID to assign to"`
	Description string `json:"description" jsonschema:"required,what the member should do"`
}

// CreateLocationInput holds parameters for create_location.
type CreateLocationInput struct {
	TeamID  int64  `json:"team_id" jsonschema:"required,team ID"`
	Name    string `json:"name" jsonschema:"required,location name"`
	Address string `json:"address,omitempty" jsonschema:"optional street address"`
}

// fieldsRecord converts an update field map into an ordered record.
// JSON object key order is not preserved through the map, so fields
// are applied in sorted-name order for determinism.
func fieldsRecord(fields map[string]interface{}) *collection.Record {
	rec := collection.NewRecord()
	for _, name := range sortedKeys(fields) {
		rec.Set(name, fields[name])
	}

	return rec
}

// --- Read handlers ---

func listTeamsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[ListTeamsInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListTeamsInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListTeams(ctx, input.UserID))
	}
}

func teamDetailsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.GetTeam(ctx, input.ID))
	}
}

func listMembersHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListMembers(ctx, input.TeamID))
	}
}

func memberDetailsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.GetMember(ctx, input.ID))
	}
}

func listEventsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListEvents(ctx, input.TeamID))
	}
}

func eventDetailsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.GetEvent(ctx, input.ID))
	}
}

func availabilityHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[AvailabilityInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AvailabilityInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListAvailabilities(ctx, input.EventID, input.MemberID))
	}
}

func listAssignmentsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[AssignmentsInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AssignmentsInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListAssignments(ctx, input.TeamID, input.EventID))
	}
}

func listLocationsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListLocations(ctx, input.TeamID))
	}
}

func listOpponentsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListOpponents(ctx, input.TeamID))
	}
}

func listForumTopicsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListForumTopics(ctx, input.TeamID))
	}
}

func listForumPostsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[ForumPostsInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ForumPostsInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListForumPosts(ctx, input.TeamID, input.ForumTopicID))
	}
}

func listBroadcastEmailsHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListBroadcastEmails(ctx, input.TeamID))
	}
}

func listMessagesHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[TeamScopedInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input TeamScopedInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return listResult(c.ListMessages(ctx, input.TeamID))
	}
}

// --- Write handlers ---

func createEventHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[CreateEventInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateEventInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.CreateEvent(ctx, teamsnap.EventFields{
			TeamID:     input.TeamID,
			Name:       input.Name,
			StartDate:  input.StartDate,
			LocationID: input.LocationID,
			OpponentID: input.OpponentID,
			Notes:      input.Notes,
			IsGame:     input.IsGame,
		}))
	}
}

func updateEventHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[UpdateInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.UpdateEvent(ctx, input.ID, fieldsRecord(input.Fields)))
	}
}

func deleteEventHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return deleteResult(c.DeleteEvent(ctx, input.ID), "event", input.ID)
	}
}

func createMemberHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[CreateMemberInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateMemberInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.CreateMember(ctx, teamsnap.MemberFields{
			TeamID:    input.TeamID,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Email:     input.Email,
			Phone:     input.Phone,
		}))
	}
}

func updateMemberHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[UpdateInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.UpdateMember(ctx, input.ID, fieldsRecord(input.Fields)))
	}
}

func deleteMemberHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return deleteResult(c.DeleteMember(ctx, input.ID), "member", input.ID)
	}
}

func updateAvailabilityHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[UpdateAvailabilityInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateAvailabilityInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.UpdateAvailability(ctx, input.AvailabilityID, input.Status))
	}
}

func createAssignmentHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[CreateAssignmentInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateAssignmentInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.CreateAssignment(ctx, teamsnap.AssignmentFields{
			EventID:     input.EventID,
			MemberID:    input.MemberID,
			Description: input.Description,
		}))
	}
}

func deleteAssignmentHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return deleteResult(c.DeleteAssignment(ctx, input.ID), "assignment", input.ID)
	}
}

func createLocationHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[CreateLocationInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CreateLocationInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.CreateLocation(ctx, teamsnap.LocationFields{
			TeamID:  input.TeamID,
			Name:    input.Name,
			Address: input.Address,
		}))
	}
}

func updateLocationHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[UpdateInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return itemResult(c.UpdateLocation(ctx, input.ID, fieldsRecord(input.Fields)))
	}
}

func deleteLocationHandler(c *teamsnap.ToolClient) mcp.ToolHandlerFor[IDInput, RecordsPayload] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, RecordsPayload, error) {
		return deleteResult(c.DeleteLocation(ctx, input.ID), "location", input.ID)
	}
}
