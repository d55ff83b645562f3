package api

import (
	"net/http"
	"time"

	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/flow"
	"github.com/gin-gonic/gin"
)

type decisionResponse struct {
	Fingerprint string         `json:"fingerprint"`
	Verdict     engine.Verdict `json:"verdict"`
	DecidedAt   time.Time      `json:"decidedAt"`
	StoreErr    string         `json:"storeErr,omitempty"`
}

func newDecisionResponse(d engine.Decision) *decisionResponse {
	resp := &decisionResponse{
		Fingerprint: d.Fingerprint,
		Verdict:     d.Verdict,
		DecidedAt:   d.DecidedAt,
	}
	if d.StoreErr != nil {
		resp.StoreErr = d.StoreErr.Error()
	}
	return resp
}

func bindFlow(ctx *gin.Context) (*flow.Flow, bool) {
	var f flow.Flow
	if err := ctx.ShouldBindJSON(&f); err != nil {
		writeError(ctx, NewError(http.StatusBadRequest, ErrCodeInvalid, err.Error()))
		return nil, false
	}
	return &f, true
}

// decide blocks until the flow is decided, which may include waiting for an operator.
func (h *handler) decide(ctx *gin.Context) {
	f, ok := bindFlow(ctx)
	if !ok {
		return
	}

	d, err := h.engine.Decide(ctx.Request.Context(), f)
	if err != nil {
		writeError(ctx, engineError(err))
		return
	}

	ctx.JSON(http.StatusOK, Response{
		Data: newDecisionResponse(d),
	})
}

type exemptResponse struct {
	Exempt bool `json:"exempt"`
}

func (h *handler) exempt(ctx *gin.Context) {
	f, ok := bindFlow(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, Response{
		Data: exemptResponse{Exempt: h.engine.IsExempt(f)},
	})
}

type fingerprintResponse struct {
	Fingerprint string `json:"fingerprint"`
}

func (h *handler) fingerprint(ctx *gin.Context) {
	f, ok := bindFlow(ctx)
	if !ok {
		return
	}

	fp, err := flow.Fingerprint(f)
	if err != nil {
		writeError(ctx, engineError(err))
		return
	}

	ctx.JSON(http.StatusOK, Response{
		Data: fingerprintResponse{Fingerprint: fp},
	})
}

type findFlowsRequest struct {
	Source      string `form:"src"`
	Destination string `form:"dst"`
}

type flowList struct {
	Count int          `json:"count"`
	List  []*flow.Flow `json:"list"`
}

// findFlows lists the recorded flows from or to one address.
func (h *handler) findFlows(ctx *gin.Context) {
	var req findFlowsRequest
	ctx.ShouldBindQuery(&req)

	if (req.Source == "") == (req.Destination == "") {
		writeError(ctx, NewError(http.StatusBadRequest, ErrCodeInvalid, "exactly one of src or dst is required"))
		return
	}

	var flows []*flow.Flow
	var err error
	if req.Source != "" {
		flows, err = h.engine.Reader().FindBySource(ctx.Request.Context(), req.Source)
	} else {
		flows, err = h.engine.Reader().FindByDestination(ctx.Request.Context(), req.Destination)
	}
	if err != nil {
		writeError(ctx, NewError(http.StatusInternalServerError, ErrCodeInternal, err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, Response{
		Data: flowList{
			Count: len(flows),
			List:  flows,
		},
	})
}

type evaluatorList struct {
	Count int      `json:"count"`
	List  []string `json:"list"`
}

func (h *handler) evaluatorList(ctx *gin.Context) {
	names := h.engine.Evaluators()
	ctx.JSON(http.StatusOK, Response{
		Data: evaluatorList{
			Count: len(names),
			List:  names,
		},
	})
}
