package action

import (
	"context"
	"fmt"
	"strings"

	"github.com/pimesh/crew/internal/wave"
)

func (r *Router) handleWork(ctx context.Context, req Request, state *State) Result {
	res, err := r.Wave.Work(ctx, r.Config, wave.WorkRequest{
		Autonomous:  req.Autonomous,
		Concurrency: req.Concurrency,
		Model:       req.Model,
		Abort:       req.Abort,
	})
	if err != nil {
		return errResult("error", workErrorCode(err))
	}
	return okText("ok", fmt.Sprintf("wave %d: %s", res.WaveNumber, res.Diagnostic), res)
}

func workErrorCode(err error) Code {
	msg := err.Error()
	if strings.Contains(msg, "no_worker") {
		return CodeNoWorker
	}
	return CodeHandlerError
}
