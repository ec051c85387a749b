package worker

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ib-77/fwdmc/pkg/mc"
	"github.com/ib-77/fwdmc/pkg/rop"
)

type requestMessage struct {
	ID         string        `json:"id,omitempty"`
	Parameters mc.Parameters `json:"parameters"`
	Trials     *int          `json:"trials,omitempty"`
	Seed       *uint64       `json:"seed,omitempty"`
}

// ResultMessage is the result shape posted back by a worker. Parameters is
// nil in the short form, which carries only the estimate. ID is the request
// id and is empty only for untagged results.
type ResultMessage struct {
	ID         string         `json:"id,omitempty"`
	Parameters *mc.Parameters `json:"parameters,omitempty"`
	Result     float64        `json:"result"`
}

type FailureMessage struct {
	ID         string         `json:"id,omitempty"`
	Parameters *mc.Parameters `json:"parameters,omitempty"`
	Error      string         `json:"error"`
	Kind       string         `json:"kind"`
}

func EncodeRequest(r Request) ([]byte, error) {
	msg := requestMessage{Parameters: r.Parameters, Trials: &r.Trials, Seed: r.Seed}
	if r.ID != uuid.Nil {
		msg.ID = r.ID.String()
	}
	return json.Marshal(msg)
}

// DecodeRequest reads a request message. A missing trial count defaults to
// mc.DefaultTrials and a missing id is generated.
func DecodeRequest(data []byte) (Request, error) {
	var msg requestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}

	req := Request{ID: uuid.New(), Parameters: msg.Parameters, Trials: mc.DefaultTrials, Seed: msg.Seed}
	if msg.Trials != nil {
		req.Trials = *msg.Trials
	}
	if msg.ID != "" {
		id, err := uuid.Parse(msg.ID)
		if err != nil {
			return Request{}, fmt.Errorf("decode request id: %w", err)
		}
		req.ID = id
	}
	return req, nil
}

// EncodeResult writes the outcome of a unit run. With echo the parameters
// travel back with the estimate or the failure.
func EncodeResult(r rop.Result[mc.SimulationResult], echo bool) ([]byte, error) {
	if r.IsSuccess() {
		msg := ResultMessage{ID: idOf(r), Result: r.Result().Estimate}
		if echo {
			p := r.Result().Parameters
			msg.Parameters = &p
		}
		return json.Marshal(msg)
	}

	err := r.Err()
	if err == nil {
		err = errors.New("empty result")
	}
	msg := FailureMessage{ID: idOf(r), Error: err.Error(), Kind: mc.Kind(err)}
	if echo {
		var failed *FailedError
		if errors.As(err, &failed) {
			p := failed.Parameters
			msg.Parameters = &p
		}
	}
	return json.Marshal(msg)
}

// DecodeResult reads either result shape. Failure messages come back as an
// error matching the original kind.
func DecodeResult(data []byte) (ResultMessage, error) {
	var head struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return ResultMessage{}, fmt.Errorf("decode result: %w", err)
	}
	if head.Error != nil {
		var f FailureMessage
		if err := json.Unmarshal(data, &f); err != nil {
			return ResultMessage{}, fmt.Errorf("decode failure: %w", err)
		}
		return ResultMessage{ID: f.ID, Parameters: f.Parameters}, fmt.Errorf("%w: %s", kindErr(f.Kind), f.Error)
	}

	var msg ResultMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ResultMessage{}, fmt.Errorf("decode result: %w", err)
	}
	return msg, nil
}

func idOf(r rop.Result[mc.SimulationResult]) string {
	if r.Id() == uuid.Nil {
		return ""
	}
	return r.Id().String()
}

func kindErr(kind string) error {
	switch kind {
	case "invalid_parameter":
		return mc.ErrInvalidParameter
	case "timeout":
		return mc.ErrTimeout
	case "cancelled":
		return mc.ErrCancelled
	}
	return mc.ErrWorkerFailure
}
