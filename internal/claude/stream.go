package claude

import (
	"encoding/json"
	"strings"
)

// streamEvent is one line of the CLI's stream-json output. Only the fields
// this tool consumes are declared; unknown events pass through untouched.
type streamEvent struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	Message struct {
		Content []contentBlock `json:"content"`
	} `json:"message"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// accumulator assembles response text from stream events. Assistant text
// blocks are concatenated as they arrive; a final result event carries the
// complete text and wins over whatever accumulated before it.
type accumulator struct {
	parts  []string
	result string
	final  bool
}

func newAccumulator() *accumulator {
	return &accumulator{}
}

func (a *accumulator) feed(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	var ev streamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		// Non-JSON noise on stdout is ignored.
		return
	}
	switch ev.Type {
	case "assistant":
		for _, block := range ev.Message.Content {
			if block.Type == "text" && block.Text != "" {
				a.parts = append(a.parts, block.Text)
			}
		}
	case "result":
		if ev.Result != "" {
			a.result = ev.Result
			a.final = true
		}
	}
}

func (a *accumulator) text() string {
	if a.final {
		return a.result
	}
	return strings.Join(a.parts, "")
}
