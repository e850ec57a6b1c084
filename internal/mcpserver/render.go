package mcpserver

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexjbarnes/teamsnap-mcp/internal/auth"
	"github.com/alexjbarnes/teamsnap-mcp/internal/collection"
	"github.com/alexjbarnes/teamsnap-mcp/internal/teamsnap"
)

// RecordsPayload is the structured output shared by every tool: a
// count plus the decoded records as plain objects. Field order inside
// each record is preserved in the text content; the structured maps
// carry the same data for hosts that prefer JSON.
type RecordsPayload struct {
	Count   int                      `json:"count"`
	Records []map[string]interface{} `json:"records,omitempty"`
	Message string                   `json:"message,omitempty"`
}

// listResult renders a search-style result.
func listResult(records []*collection.Record, err error) (*mcp.CallToolResult, RecordsPayload, error) {
	if err != nil {
		return errorResult(err), RecordsPayload{}, nil
	}

	payload := RecordsPayload{Count: len(records), Records: recordMaps(records)}

	return textResult(renderRecords(records)), payload, nil
}

// itemResult renders a get/create/update-style result holding one record.
func itemResult(rec *collection.Record, err error) (*mcp.CallToolResult, RecordsPayload, error) {
	if err != nil {
		return errorResult(err), RecordsPayload{}, nil
	}

	payload := RecordsPayload{Count: 1, Records: recordMaps([]*collection.Record{rec})}

	return textResult(renderRecord(rec)), payload, nil
}

// deleteResult renders a delete confirmation.
func deleteResult(err error, entity string, id int64) (*mcp.CallToolResult, RecordsPayload, error) {
	if err != nil {
		return errorResult(err), RecordsPayload{}, nil
	}

	msg := fmt.Sprintf("Deleted %s %d.", entity, id)

	return textResult(msg), RecordsPayload{Message: msg}, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult renders an error as a short human-readable message with
// a remediation hint, never a raw trace. The error is reported inside
// the tool result (IsError) rather than as a protocol failure so the
// assistant can read it and adjust.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: friendlyMessage(err)}},
		IsError: true,
	}
}

// friendlyMessage maps the client error taxonomy to user-facing text.
func friendlyMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired),
		errors.Is(err, auth.ErrAuthenticationExpired):
		return "Not authenticated with TeamSnap. Run the teamsnap-auth command to authorize, then try again."

	case teamsnap.IsWriteDisabled(err):
		// The gate's message already names the remediation.
		return err.Error()

	case teamsnap.IsTimeout(err):
		return "The TeamSnap API did not respond in time. This is usually temporary; try again."

	case collection.IsMalformed(err):
		return "TeamSnap returned a response this server could not understand. The API may have changed; check for an updated server version. (" + err.Error() + ")"

	default:
		if ae, ok := teamsnap.AsAPIError(err); ok {
			return fmt.Sprintf("TeamSnap API error (status %d): %s", ae.StatusCode, ae.Message)
		}

		return "Request failed: " + err.Error()
	}
}

// renderRecords renders records as readable text, one block per
// record, fields in the order the server sent them.
func renderRecords(records []*collection.Record) string {
	if len(records) == 0 {
		return "No results."
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%d result(s)\n", len(records))

	for i, rec := range records {
		fmt.Fprintf(&b, "\n--- %d ---\n", i+1)
		b.WriteString(renderRecord(rec))
	}

	return b.String()
}

func renderRecord(rec *collection.Record) string {
	var b strings.Builder

	for _, name := range rec.Names() {
		v, _ := rec.Lookup(name)
		if v == nil {
			continue // explicit nulls add noise for assistants
		}

		fmt.Fprintf(&b, "%s: %s\n", name, rec.String(name))
	}

	return b.String()
}

func recordMaps(records []*collection.Record) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(records))

	for _, rec := range records {
		m := make(map[string]interface{}, rec.Len())
		for _, name := range rec.Names() {
			m[name], _ = rec.Lookup(name)
		}

		out = append(out, m)
	}

	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
