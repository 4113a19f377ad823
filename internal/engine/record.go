package engine

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/runtime"
	"github.com/roach88/smarm/internal/store"
)

// NewRecord builds the ledger record of one evaluation.
func NewRecord(id string, seq int64, req runtime.Request, resp *runtime.Response) store.Evaluation {
	ev := store.Evaluation{
		ID:           id,
		Seq:          seq,
		Program:      req.Program,
		ProgramID:    resp.ProgramID,
		EnvVersion:   resp.EnvVersion,
		ManifestID:   resp.ManifestID,
		Grants:       append([]string(nil), req.Grants...),
		StepBudget:   req.StepBudget,
		MemoryBudget: req.MemoryBudget,
		Result:       resp.Result,
		ResultID:     resp.ResultID,
		StepsUsed:    resp.StepsUsed,
		MemoryUsed:   resp.MemoryUsed,
	}
	if resp.Halt != nil {
		ev.HaltCode = string(resp.Halt.Code)
		ev.HaltMessage = resp.Halt.Message
		ev.HaltDetails = resp.Halt.Details
	}
	return ev
}

// RequestOf rebuilds the request a record was evaluated from.
func RequestOf(ev store.Evaluation) runtime.Request {
	return runtime.Request{
		Program:      ev.Program,
		StepBudget:   ev.StepBudget,
		MemoryBudget: ev.MemoryBudget,
		EnvVersion:   ev.EnvVersion,
		Grants:       ev.Grants,
	}
}

// ResponseOf rebuilds the recorded response.
func ResponseOf(ev store.Evaluation) *runtime.Response {
	resp := &runtime.Response{
		Result:     ev.Result,
		ResultID:   ev.ResultID,
		StepsUsed:  ev.StepsUsed,
		MemoryUsed: ev.MemoryUsed,
		ProgramID:  ev.ProgramID,
		ManifestID: ev.ManifestID,
		EnvVersion: ev.EnvVersion,
	}
	if ev.Halted() {
		resp.Halt = &halt.Error{
			Code:    halt.Code(ev.HaltCode),
			Message: ev.HaltMessage,
			Details: ev.HaltDetails,
		}
	}
	return resp
}
