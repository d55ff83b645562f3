package api

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/fwdask/fwdask/flow"
	"github.com/gin-gonic/gin"
)

type decisionList struct {
	Count int                 `json:"count"`
	List  []*decisionResponse `json:"list"`
}

func (h *handler) decisionList(ctx *gin.Context) {
	list := []*decisionResponse{}
	for _, d := range h.engine.Decisions() {
		list = append(list, newDecisionResponse(d))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].DecidedAt.Before(list[j].DecidedAt)
	})

	ctx.JSON(http.StatusOK, Response{
		Data: decisionList{
			Count: len(list),
			List:  list,
		},
	})
}

type getDecisionRequest struct {
	Fingerprint string `uri:"fingerprint"`
}

func (h *handler) getDecision(ctx *gin.Context) {
	var req getDecisionRequest
	ctx.ShouldBindUri(&req)

	if !flow.IsFingerprint(req.Fingerprint) {
		writeError(ctx, NewError(http.StatusBadRequest, ErrCodeInvalid, fmt.Sprintf("invalid fingerprint %q", req.Fingerprint)))
		return
	}

	d, ok := h.engine.Lookup(req.Fingerprint)
	if !ok {
		writeError(ctx, ErrNotFound)
		return
	}

	ctx.JSON(http.StatusOK, Response{
		Data: newDecisionResponse(d),
	})
}

// lookupDecision returns the earlier decision for a flow without deciding it.
func (h *handler) lookupDecision(ctx *gin.Context) {
	f, ok := bindFlow(ctx)
	if !ok {
		return
	}

	d, ok, err := h.engine.PreviousDecision(f)
	if err != nil {
		writeError(ctx, engineError(err))
		return
	}
	if !ok {
		writeError(ctx, ErrNotFound)
		return
	}

	ctx.JSON(http.StatusOK, Response{
		Data: newDecisionResponse(d),
	})
}
