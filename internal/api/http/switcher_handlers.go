package http

import (
	"net/http"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// OpenSwitcher starts an Alt-Tab round over the live instances
func (h *Handlers) OpenSwitcher(c *gin.Context) {
	entries := h.switcher.Open()

	resp := gin.H{
		"entries": entries,
		"count":   len(entries),
	}
	if cur, ok := h.switcher.Current(); ok {
		resp["selected"] = cur
	}

	c.JSON(http.StatusOK, resp)
}

// SwitcherNext advances the selection, wrapping at the end
func (h *Handlers) SwitcherNext(c *gin.Context) {
	h.stepSwitcher(c, h.switcher.Next)
}

// SwitcherPrevious moves the selection back, wrapping at the start
func (h *Handlers) SwitcherPrevious(c *gin.Context) {
	h.stepSwitcher(c, h.switcher.Previous)
}

// SwitcherSelect jumps the selection to an entry by index
func (h *Handlers) SwitcherSelect(c *gin.Context) {
	var req struct {
		Index int `json:"index"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "validation"})
		return
	}

	if err := h.switcher.Select(req.Index); err != nil {
		respondError(c, err)
		return
	}

	cur, _ := h.switcher.Current()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"selected": cur,
	})
}

// SwitcherCommit switches to the selected instance and closes the round
func (h *Handlers) SwitcherCommit(c *gin.Context) {
	switched, err := h.switcher.Commit(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": switched})
}

// SwitcherCancel closes the round without switching
func (h *Handlers) SwitcherCancel(c *gin.Context) {
	h.switcher.Cancel()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) stepSwitcher(c *gin.Context, step func() (types.ApplicationInstance, bool)) {
	inst, ok := step()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"selected": inst,
	})
}
