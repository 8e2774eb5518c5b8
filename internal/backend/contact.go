package backend

import (
	"context"
	"net/http"
)

// ContactMessage is a storefront contact form submission.
type ContactMessage struct {
	ID        string `json:"_id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject,omitempty"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// SubmitContact forwards a contact form submission.
func (c *Client) SubmitContact(ctx context.Context, msg ContactMessage) (ContactMessage, error) {
	var out ContactMessage
	err := c.do(ctx, http.MethodPost, "/contact", "", nil, msg, &out)
	return out, err
}

// ListContacts returns all contact messages.
func (c *Client) ListContacts(ctx context.Context, token string) ([]ContactMessage, error) {
	var msgs []ContactMessage
	err := c.do(ctx, http.MethodGet, "/contact", token, nil, nil, &msgs)
	return msgs, err
}

// DeleteContact removes a contact message.
func (c *Client) DeleteContact(ctx context.Context, token, id string) error {
	return c.do(ctx, http.MethodDelete, "/contact/"+id, token, nil, nil, nil)
}
