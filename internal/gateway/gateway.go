package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"bhcpharm/m/domain"
)

// Session is the slice of the session store the gateway needs: a token
// source plus the hooks for login success and implicit logout on 401.
type Session interface {
	Token() (string, bool)
	Activate(token string, principal domain.Principal) error
	Invalidate()
}

// Client issues authenticated calls against the pharmacy API. It performs no
// retries; every failure is reported once and retried only by the user.
type Client struct {
	base    string
	http    *http.Client
	session Session
}

// New constructs a Client. The session is passed explicitly; there is no
// ambient token global.
func New(base string, timeout time.Duration, session Session) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	// An absent token is passed through untouched; the server decides.
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// serverMessage pulls the server's own wording out of an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return ""
}

func classify(status int, body []byte) *Error {
	msg := serverMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		if msg == "" {
			msg = "session expired, please log in again"
		}
		return &Error{Kind: KindUnauthenticated, Status: status, Message: msg}
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "insufficient permissions"
		}
		return &Error{Kind: KindForbidden, Status: status, Message: msg}
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "not found"
		}
		return &Error{Kind: KindNotFound, Status: status, Message: msg}
	case status >= 400 && status < 500:
		if msg == "" {
			msg = "request rejected"
		}
		return &Error{Kind: KindValidation, Status: status, Message: msg}
	default:
		if msg == "" {
			msg = "server error"
		}
		return &Error{Kind: KindServer, Status: status, Message: msg}
	}
}

// do executes the request and decodes a 2xx JSON body into out when out is
// non-nil. A 401 invalidates the session before the error is returned.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "cannot reach the pharmacy server"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: "connection lost while reading the response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gerr := classify(resp.StatusCode, body)
		if gerr.Kind == KindUnauthenticated {
			c.session.Invalidate()
		}
		return gerr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindServer, Status: resp.StatusCode, Message: "malformed response from server"}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// Login exchanges credentials for a token and activates the session. Any
// failure surfaces as KindAuth, carrying the server's message verbatim when
// one was sent.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Principal, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return domain.Principal{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", bytes.NewReader(payload))
	if err != nil {
		return domain.Principal{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Principal{}, &Error{Kind: KindAuth, Message: "login failed, check server status and credentials"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Principal{}, &Error{Kind: KindAuth, Message: "login failed, check server status and credentials"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := serverMessage(body)
		if msg == "" {
			msg = "login failed, check server status and credentials"
		}
		return domain.Principal{}, &Error{Kind: KindAuth, Status: resp.StatusCode, Message: msg}
	}

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.Token == "" {
		return domain.Principal{}, &Error{Kind: KindAuth, Status: resp.StatusCode, Message: "malformed login response"}
	}

	principal := domain.Principal{
		ID:       result.User.ID,
		Name:     result.User.Name,
		Username: result.User.Username,
		Role:     domain.ParseRole(result.User.Role),
	}
	if err := c.session.Activate(result.Token, principal); err != nil {
		return domain.Principal{}, fmt.Errorf("unable to persist session: %w", err)
	}
	return principal, nil
}

// ListInventory fetches the inventory, optionally filtered server-side.
func (c *Client) ListInventory(ctx context.Context, search string) ([]domain.InventoryItem, error) {
	path := "/pharmacy/inventory"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var items []domain.InventoryItem
	if err := c.getJSON(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// UpsertInventory creates the item when it has no id, updates it otherwise.
func (c *Client) UpsertInventory(ctx context.Context, item domain.InventoryItem) (domain.InventoryItem, error) {
	var saved domain.InventoryItem
	var err error
	if item.ID == 0 {
		err = c.sendJSON(ctx, http.MethodPost, "/pharmacy/inventory", item, &saved)
	} else {
		err = c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/pharmacy/inventory/%d", item.ID), item, &saved)
	}
	if err != nil {
		return domain.InventoryItem{}, err
	}
	return saved, nil
}

func (c *Client) DeleteInventory(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/pharmacy/inventory/%d", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// UploadInventoryCSV posts a catalog file for server-side import and returns
// the server's result message.
func (c *Client) UploadInventoryCSV(ctx context.Context, filename string, file io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/pharmacy/inventory/upload-csv", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result struct {
		Message string `json:"message"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

func (c *Client) ListSalesHistory(ctx context.Context) ([]domain.Sale, error) {
	var sales []domain.Sale
	if err := c.getJSON(ctx, "/pharmacy/sales/history", &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// SubmitSale commits a finalized draft. The server is the final arbiter of
// stock sufficiency; its rejection comes back as KindValidation.
func (c *Client) SubmitSale(ctx context.Context, submission domain.SaleSubmission) (domain.Sale, error) {
	var sale domain.Sale
	if err := c.sendJSON(ctx, http.MethodPost, "/pharmacy/sales/direct", submission, &sale); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

func (c *Client) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	var summary domain.DashboardSummary
	if err := c.getJSON(ctx, "/pharmacy/dashboard/summary", &summary); err != nil {
		return domain.DashboardSummary{}, err
	}
	return summary, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.Principal, error) {
	var users []domain.Principal
	if err := c.getJSON(ctx, "/admin/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) RegisterUser(ctx context.Context, user domain.NewUser) (domain.Principal, error) {
	var created domain.Principal
	if err := c.sendJSON(ctx, http.MethodPost, "/admin/users/register", user, &created); err != nil {
		return domain.Principal{}, err
	}
	return created, nil
}

func (c *Client) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	payload := map[string]string{"newPassword": newPassword}
	return c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/admin/users/%d/reset-password", userID), payload, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/admin/users/%d", id), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// ListActivityLog fetches the audit trail, unwrapping the {log:[...]} envelope.
func (c *Client) ListActivityLog(ctx context.Context) ([]domain.ActivityEntry, error) {
	var result struct {
		Log []domain.ActivityEntry `json:"log"`
	}
	if err := c.getJSON(ctx, "/admin/activity-log", &result); err != nil {
		return nil, err
	}
	return result.Log, nil
}
