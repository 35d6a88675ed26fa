package launchapi

import (
	"net/http"

	"launchpad/core/runtime"
	"launchpad/crypto"
	"launchpad/native/curve"
)

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(e *runtime.Engines) (interface{}, error) {
		st, err := e.Bootstrap.State()
		if err != nil {
			return nil, err
		}
		rate, err := e.Bootstrap.CurrentRate()
		if err != nil {
			return nil, err
		}
		return newSaleView(st, rate), nil
	})
}

func (s *Server) getRate(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(e *runtime.Engines) (interface{}, error) {
		st, err := e.Bootstrap.State()
		if err != nil {
			return nil, err
		}
		rate, err := e.Bootstrap.CurrentRate()
		if err != nil {
			return nil, err
		}
		progress, err := curve.Progress(st.TotalAllocated, st.Params.AllocationCap)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"rate":             rate,
			"progress_percent": progress,
			"remaining":        st.Remaining(),
			"sale_complete":    st.SaleComplete,
		}, nil
	})
}

func (s *Server) getContributor(w http.ResponseWriter, r *http.Request) {
	wallet, err := pathAddress(r, "wallet")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.view(w, r, func(e *runtime.Engines) (interface{}, error) {
		st, err := e.Bootstrap.State()
		if err != nil {
			return nil, err
		}
		record, err := e.Bootstrap.Contributor(wallet)
		if err != nil {
			return nil, err
		}
		return newContributorView(record, st.Params.Unit), nil
	})
}

type contributeRequest struct {
	Amount amount `json:"amount"`
}

func (s *Server) contribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "bootstrap.contribute", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		receipt, err := e.Bootstrap.Contribute(caller, uint64(req.Amount))
		if err != nil {
			return nil, err
		}
		st, err := e.Bootstrap.State()
		if err != nil {
			return nil, err
		}
		return newReceiptView(receipt, st.Params.Unit), nil
	})
}

func (s *Server) pauseSale(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "bootstrap.pause", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.Pause(caller)
	})
}

func (s *Server) unpauseSale(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "bootstrap.unpause", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.Unpause(caller)
	})
}

type proposeRequest struct {
	Next crypto.Address `json:"next"`
}

func (s *Server) proposeSaleAuthority(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "bootstrap.propose_authority", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.ProposeAuthority(caller, req.Next)
	})
}

func (s *Server) acceptSaleAuthority(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "bootstrap.accept_authority", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.AcceptAuthority(caller)
	})
}

func (s *Server) cancelSaleAuthority(w http.ResponseWriter, r *http.Request) {
	s.run(w, r, "bootstrap.cancel_authority_transfer", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.CancelAuthorityTransfer(caller)
	})
}

type saleLimitsRequest struct {
	MinContribution amount `json:"min_contribution"`
	MaxPerWallet    amount `json:"max_per_wallet"`
}

func (s *Server) updateSaleLimits(w http.ResponseWriter, r *http.Request) {
	var req saleLimitsRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "bootstrap.update_limits", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.UpdateLimits(caller, uint64(req.MinContribution), uint64(req.MaxPerWallet))
	})
}

type markDistributedRequest struct {
	Contributor crypto.Address `json:"contributor"`
}

func (s *Server) markDistributed(w http.ResponseWriter, r *http.Request) {
	var req markDistributedRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "bootstrap.mark_distributed", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		return nil, e.Bootstrap.MarkDistributed(caller, req.Contributor)
	})
}

type finalizeRequest struct {
	TokenAmount amount `json:"token_amount"`
	ValueAmount amount `json:"value_amount"`
	OpenTime    uint64 `json:"open_time"`
}

type finalizeResponse struct {
	Pool      crypto.Address `json:"pool"`
	LPMint    crypto.Address `json:"lp_mint"`
	LPAccount crypto.Address `json:"lp_account"`
	LPBalance uint64         `json:"lp_balance"`
}

func (s *Server) finalizePool(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.run(w, r, "bootstrap.finalize_pool", func(caller crypto.Address, e *runtime.Engines) (interface{}, error) {
		receipt, err := e.Bootstrap.FinalizePool(caller, uint64(req.TokenAmount), uint64(req.ValueAmount), req.OpenTime)
		if err != nil {
			return nil, err
		}
		return finalizeResponse{Pool: receipt.Pool, LPMint: receipt.LPMint, LPAccount: receipt.LPAccount, LPBalance: receipt.LPBalance}, nil
	})
}
