package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/store"
)

// GroupHandlers provides HTTP handlers for group management endpoints.
type GroupHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(st store.Store, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{
		store: st,
		log:   logger,
	}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name      string  `json:"name" binding:"required,min=1,max=100"`
	MemberIDs []int64 `json:"member_ids"`
}

// AddMemberRequest represents the add group member request body.
type AddMemberRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	CreatedBy *int64  `json:"created_by,omitempty"`
	CreatedAt string  `json:"created_at"`
	Members   []int64 `json:"members,omitempty"`
}

// CreateGroup handles group creation. The creator becomes a member; unknown
// member ids are skipped silently.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create group request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), req.Name, uid, req.MemberIDs)
	if err != nil {
		h.log.Error().Err(err).Str("group_name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	members, err := h.store.ListGroupMembers(c.Request.Context(), group.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", group.ID).Msg("failed to list group members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("group_name", group.Name).Int64("group_id", group.ID).Int64("created_by", uid).Msg("group created successfully")
	c.JSON(http.StatusCreated, GroupResponse{
		ID:        group.ID,
		Name:      group.Name,
		CreatedBy: group.CreatedBy,
		CreatedAt: group.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Members:   members,
	})
}

// ListGroups lists the groups the authenticated user belongs to.
// GET /api/groups
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groups, err := h.store.ListGroups(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		response = append(response, GroupResponse{
			ID:        g.ID,
			Name:      g.Name,
			CreatedBy: g.CreatedBy,
			CreatedAt: g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	c.JSON(http.StatusOK, response)
}

// AddMember adds a user to a group. Only members may add others.
// POST /api/groups/:id/members
func (h *GroupHandlers) AddMember(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add member request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if !h.requireMembership(c, uid, groupID) {
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.UserID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	if err := h.store.AddGroupMember(c.Request.Context(), groupID, req.UserID); err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Int64("user_id", req.UserID).Msg("failed to add group member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "member added"})
}

// RemoveMember removes a user from a group.
// DELETE /api/groups/:id/members/:user_id
func (h *GroupHandlers) RemoveMember(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}
	memberID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	if !h.requireMembership(c, uid, groupID) {
		return
	}

	if err := h.store.RemoveGroupMember(c.Request.Context(), groupID, memberID); err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Int64("user_id", memberID).Msg("failed to remove group member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "member removed"})
}

// requireMembership writes an error response and returns false when uid is
// not a member of the group.
func (h *GroupHandlers) requireMembership(c *gin.Context, uid, groupID int64) bool {
	member, err := h.store.IsMember(c.Request.Context(), uid, store.GroupRoomKey(groupID))
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to check membership")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return false
	}
	if !member {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found or you are not a member"})
		return false
	}
	return true
}
