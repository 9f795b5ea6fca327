package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/reelprompt/reelprompt/internal/model"
)

// CreditsEvent is one balance update from the credit stream.
type CreditsEvent struct {
	Credits model.Credits `json:"credits"`
	Reason  string        `json:"reason"`
}

// StreamCredits opens the server-sent credit stream and calls fn for each
// event. It returns nil when ctx is cancelled or the server ends the stream.
func (c *Client) StreamCredits(ctx context.Context, fn func(CreditsEvent)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/user/credits/stream", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open credit stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	var event, data string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event == "credits" && data != "" {
				var evt CreditsEvent
				if err := json.Unmarshal([]byte(data), &evt); err != nil {
					return fmt.Errorf("decode credit event: %w", err)
				}
				fn(evt)
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read credit stream: %w", err)
	}
	return nil
}
