package chat

import (
	"context"
	"net/http"

	"github.com/Anuragsahu418/EDUCHAT/logger"
	"github.com/Anuragsahu418/EDUCHAT/middleware"
	midsec "github.com/Anuragsahu418/EDUCHAT/middleware/security"
	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	"github.com/Anuragsahu418/EDUCHAT/module/chat/service"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PresenceSource answers GET /api/presence.
type PresenceSource interface {
	Snapshot(ctx context.Context) []string
}

type Handler struct {
	svc      *service.Service
	presence PresenceSource
}

func NewHandler(svc *service.Service, presence PresenceSource) *Handler {
	return &Handler{svc: svc, presence: presence}
}

// Register mounts every chat route behind auth.
func (h *Handler) Register(rt middleware.Routes) {
	auth := middleware.RouteOpt{IsAuth: true}

	rt.GET("/api/messages/users", h.contacts, auth)
	rt.GET("/api/messages/:id", h.directHistory, auth)
	rt.POST("/api/messages/send/:id", h.sendDirect, auth)
	rt.DELETE("/api/messages", h.deleteMessages, auth)
	rt.DELETE("/api/messages/clear/:id", h.clear, auth)
	rt.POST("/api/messages/read", h.markRead, auth)

	rt.GET("/api/messages/group/:id", h.groupHistory, auth)
	rt.POST("/api/messages/group/:id", h.sendGroup, auth)

	rt.GET("/api/groups", h.groups, auth)
	rt.POST("/api/groups", h.createGroup, auth)
	rt.POST("/api/groups/:id/members", h.addMember, auth)
	rt.DELETE("/api/groups/:id/members/:userId", h.removeMember, auth)

	rt.GET("/api/presence", h.online, auth)
}

type sendReq struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

type deleteReq struct {
	MessageIDs []string              `json:"messageIds"`
	DeleteFor  chatmodel.DeleteScope `json:"deleteFor"`
}

type readReq struct {
	MessageIDs []string `json:"messageIds"`
}

type groupReq struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type memberReq struct {
	UserID string `json:"userId"`
}

func (h *Handler) contacts(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	users, err := h.svc.Contacts(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) directHistory(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	msgs, err := h.svc.History(c.Request.Context(), actor, chatmodel.Direct(actor.ID, c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) groupHistory(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	msgs, err := h.svc.History(c.Request.Context(), actor, chatmodel.GroupKey(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) sendDirect(c *gin.Context) {
	h.send(c, func(a usermodel.Actor) chatmodel.ConversationKey { return chatmodel.Direct(a.ID, c.Param("id")) })
}

func (h *Handler) sendGroup(c *gin.Context) {
	h.send(c, func(usermodel.Actor) chatmodel.ConversationKey { return chatmodel.GroupKey(c.Param("id")) })
}

func (h *Handler) send(c *gin.Context, key func(usermodel.Actor) chatmodel.ConversationKey) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WrapMsg(err.Error()))
		return
	}
	view, err := h.svc.Send(c.Request.Context(), actor, key(actor), req.Text, req.Image)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *Handler) deleteMessages(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req deleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WrapMsg(err.Error()))
		return
	}
	if req.DeleteFor == "" {
		req.DeleteFor = chatmodel.DeleteForMe
	}
	deleted, err := h.svc.Delete(c.Request.Context(), actor, req.MessageIDs, req.DeleteFor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deletedIds": deleted})
}

func (h *Handler) clear(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	n, err := h.svc.Clear(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// markRead mirrors the websocket message-read event for clients without a socket.
func (h *Handler) markRead(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req readReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WrapMsg(err.Error()))
		return
	}
	ids, err := h.svc.MarkRead(c.Request.Context(), actor, req.MessageIDs)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": ids})
}

func (h *Handler) groups(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	gs, err := h.svc.Groups(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gs)
}

func (h *Handler) createGroup(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req groupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrBadRequest.WrapMsg(err.Error()))
		return
	}
	g, err := h.svc.CreateGroup(c.Request.Context(), actor, req.Name, req.Members)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *Handler) addMember(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	var req memberReq
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		fail(c, errs.ErrBadRequest.WrapMsg("userId required"))
		return
	}
	if err := h.svc.AddMember(c.Request.Context(), actor, c.Param("id"), req.UserID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeMember(c *gin.Context) {
	actor, ok := actorOf(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), actor, c.Param("id"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) online(c *gin.Context) {
	if _, ok := actorOf(c); !ok {
		return
	}
	online := []string{}
	if h.presence != nil {
		online = h.presence.Snapshot(c.Request.Context())
	}
	c.JSON(http.StatusOK, online)
}

func actorOf(c *gin.Context) (usermodel.Actor, bool) {
	a, ok := midsec.ActorFrom(c)
	if !ok {
		fail(c, errs.ErrUnauthenticated.Wrap())
	}
	return a, ok
}

func fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, errs.AsCode(err))
}
