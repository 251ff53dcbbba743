package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/codefionn/agentwerk/internal/toolcall"
)

const (
	// repeatNoticeAfter consecutive identical calls put a corrective notice
	// into the next prompt.
	repeatNoticeAfter = 1
	// repeatAbortAfter consecutive identical calls stop the run; the model
	// is stuck and more rounds will not help.
	repeatAbortAfter = 3
)

const repeatNotice = "You are repeating the same action. Try a different approach or use your internal knowledge if the tool is not working."

// repetitionGuard tracks consecutive identical tool calls within one run.
// Identity is the hash of the tool name and the canonical JSON form of the
// arguments, so map ordering does not matter.
type repetitionGuard struct {
	lastHash uint64
	repeats  int
}

// observe registers call and returns how many times in a row the identical
// call has now been seen beyond the first.
func (g *repetitionGuard) observe(call toolcall.NormalizedCall) int {
	h := hashCall(call)
	if h == g.lastHash {
		g.repeats++
	} else {
		g.lastHash = h
		g.repeats = 0
	}
	return g.repeats
}

func hashCall(call toolcall.NormalizedCall) uint64 {
	digest := xxhash.New()
	_, _ = digest.WriteString(call.ToolName)
	_, _ = digest.Write([]byte{0})

	// json.Marshal sorts map keys, giving a canonical argument encoding.
	data, err := json.Marshal(call.Arguments)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", call.Arguments))
	}
	_, _ = digest.Write(data)

	return digest.Sum64()
}
