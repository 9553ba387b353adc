package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/worksphere/connect-server/internal/store"
)

// ContactHandlers provides HTTP handlers for contact-list endpoints.
type ContactHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewContactHandlers creates a new contact handlers instance.
func NewContactHandlers(st store.Store, logger *zerolog.Logger) *ContactHandlers {
	return &ContactHandlers{
		store: st,
		log:   logger,
	}
}

// AddContactRequest represents the add contact request body.
type AddContactRequest struct {
	ContactID int64 `json:"contact_id" binding:"required"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ListContacts lists the authenticated user's contacts.
// GET /api/contacts
func (h *ContactHandlers) ListContacts(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	contacts, err := h.store.ListContacts(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list contacts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(contacts))
	for _, u := range contacts {
		response = append(response, UserResponse{ID: u.ID, Username: u.Username})
	}
	c.JSON(http.StatusOK, response)
}

// AddContact adds a user to the authenticated user's contact list.
// POST /api/contacts
func (h *ContactHandlers) AddContact(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add contact request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if _, err := h.store.GetUserByID(c.Request.Context(), req.ContactID); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	if err := h.store.AddContact(c.Request.Context(), uid, req.ContactID); err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Int64("contact_id", req.ContactID).Msg("failed to add contact")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "contact added"})
}

// RemoveContact removes a user from the authenticated user's contact list.
// DELETE /api/contacts/:id
func (h *ContactHandlers) RemoveContact(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	contactID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid contact id"})
		return
	}

	if err := h.store.RemoveContact(c.Request.Context(), uid, contactID); err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Int64("contact_id", contactID).Msg("failed to remove contact")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: "contact removed"})
}

// SearchUsers searches users by username substring.
// GET /api/users/search?q=
func (h *ContactHandlers) SearchUsers(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	query := c.Query("q")
	if len(query) < 3 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "search query must be at least 3 characters long"})
		return
	}

	users, err := h.store.SearchUsers(c.Request.Context(), query)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		if u.ID == uid {
			continue
		}
		response = append(response, UserResponse{ID: u.ID, Username: u.Username})
	}
	c.JSON(http.StatusOK, response)
}
