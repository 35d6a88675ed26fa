package launchapi

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	coreerrors "launchpad/core/errors"
	"launchpad/core/runtime"
	"launchpad/crypto"
	"launchpad/native/dispenser"
	"launchpad/services/manifest"
)

func (s *Server) getDispenserState(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(e *runtime.Engines) (interface{}, error) {
		st, err := e.Dispenser.State()
		if err != nil {
			return nil, err
		}
		return newDispenserView(st), nil
	})
}

func (s *Server) getDistribution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.view(w, r, func(e *runtime.Engines) (interface{}, error) {
		d, err := e.Dispenser.Distribution(id)
		if err != nil {
			return nil, err
		}
		return newDistributionView(d), nil
	})
}

type enqueueRequest struct {
	ContributionID string         `json:"contribution_id"`
	Recipient      crypto.Address `json:"recipient"`
	Amount         amount         `json:"amount"`
}

type batchResponse struct {
	Batch         string             `json:"batch,omitempty"`
	Total         uint64             `json:"total"`
	Distributions []distributionView `json:"distributions"`
}

func isYAML(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return strings.HasSuffix(mediaType, "yaml")
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request) {
	if isYAML(r) {
		s.enqueueManifest(w, r)
		return
	}
	var req enqueueRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "dispenser.enqueue", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		d, err := e.Dispenser.Enqueue(caller, req.ContributionID, req.Recipient, uint64(req.Amount))
		if err != nil {
			return nil, err
		}
		return newDistributionView(d), nil
	})
}

// enqueueManifest queues every entry of a YAML manifest. The batch is
// all-or-nothing: one failed entry rolls back the rest.
func (s *Server) enqueueManifest(w http.ResponseWriter, r *http.Request) {
	doc, err := manifest.Decode(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeError(w, r, coreerrors.Wrap(errInvalidPayload, "%v", err))
		return
	}
	items, err := doc.Items()
	if err != nil {
		s.writeError(w, r, coreerrors.Wrap(errInvalidPayload, "%v", err))
		return
	}
	total, err := manifest.Total(items)
	if err != nil {
		s.writeError(w, r, coreerrors.Wrap(errInvalidPayload, "%v", err))
		return
	}
	s.run(w, r, "dispenser.enqueue_batch", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		resp := batchResponse{Batch: doc.Batch, Total: total, Distributions: make([]distributionView, 0, len(items))}
		for _, item := range items {
			d, err := e.Dispenser.Enqueue(caller, item.ContributionID, item.Recipient, item.Amount)
			if err != nil {
				return nil, coreerrors.Wrap(err, "entry %s", item.ContributionID)
			}
			resp.Distributions = append(resp.Distributions, newDistributionView(d))
		}
		return resp, nil
	})
}

type executeRequest struct {
	Destination crypto.Address `json:"destination"`
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req executeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "dispenser.execute", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		d, err := e.Dispenser.Execute(caller, id, req.Destination)
		if err != nil {
			return nil, err
		}
		return newDistributionView(d), nil
	})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.run(w, r, "dispenser.cancel", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		d, err := e.Dispenser.Cancel(caller, id)
		if err != nil {
			return nil, err
		}
		return newDistributionView(d), nil
	})
}

func (s *Server) pauseDispenser(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "dispenser.emergency_pause", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.EmergencyPause(caller)
	})
}

func (s *Server) unpauseDispenser(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "dispenser.unpause", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.Unpause(caller)
	})
}

type dispenserLimitsRequest struct {
	MaxSingleDistribution amount `json:"max_single_distribution"`
	RateLimitPerWindow    uint64 `json:"rate_limit_per_window"`
	WindowSeconds         uint64 `json:"window_seconds"`
}

func (s *Server) updateDispenserLimits(w http.ResponseWriter, r *http.Request) {
	var req dispenserLimitsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	limits := dispenser.Limits{
		MaxSingleDistribution: uint64(req.MaxSingleDistribution),
		RateLimitPerWindow:    req.RateLimitPerWindow,
		WindowSeconds:         req.WindowSeconds,
	}
	s.run(w, r, "dispenser.update_limits", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.UpdateLimits(caller, limits)
	})
}

type operatorRequest struct {
	Operator crypto.Address `json:"operator"`
}

func (s *Server) addOperator(w http.ResponseWriter, r *http.Request) {
	var req operatorRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "dispenser.add_operator", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.AddOperator(caller, req.Operator)
	})
}

func (s *Server) removeOperator(w http.ResponseWriter, r *http.Request) {
	op, err := pathAddress(r, "addr")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "dispenser.remove_operator", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.RemoveOperator(caller, op)
	})
}

func (s *Server) proposeDispenserAuthority(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "dispenser.propose_authority", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.ProposeAuthority(caller, req.Next)
	})
}

func (s *Server) acceptDispenserAuthority(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "dispenser.accept_authority", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.AcceptAuthority(caller)
	})
}

func (s *Server) cancelDispenserAuthority(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "dispenser.cancel_authority_transfer", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Dispenser.CancelAuthorityTransfer(caller)
	})
}
