package client

import (
	"context"
	"fmt"
	"net/http"

	chatmodel "github.com/Anuragsahu418/EDUCHAT/module/chat/model"
	usermodel "github.com/Anuragsahu418/EDUCHAT/module/user/model"
	"github.com/Anuragsahu418/EDUCHAT/tools/errs"
	"github.com/go-resty/resty/v2"
)

// Backend is the REST surface a ConversationView needs.
type Backend interface {
	History(ctx context.Context, key chatmodel.ConversationKey) ([]chatmodel.MessageView, error)
	Send(ctx context.Context, to chatmodel.ConversationKey, text, image string) (*chatmodel.MessageView, error)
	Delete(ctx context.Context, ids []string, scope chatmodel.DeleteScope) error
	Clear(ctx context.Context, partnerID string) error
}

// API talks to the REST endpoints as one user.
type API struct {
	self string
	rc   *resty.Client
}

func NewAPI(baseURL, token, self string) *API {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")
	return &API{self: self, rc: rc}
}

// Self is the user this client acts as.
func (a *API) Self() string { return a.self }

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	var ce errs.CodeError
	req := a.rc.R().SetContext(ctx).SetError(&ce)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		if ce.Code == 0 {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status())
		}
		return ce
	}
	return nil
}

func (a *API) Contacts(ctx context.Context) ([]usermodel.Summary, error) {
	var out []usermodel.Summary
	return out, a.do(ctx, http.MethodGet, "/api/messages/users", nil, &out)
}

func (a *API) History(ctx context.Context, key chatmodel.ConversationKey) ([]chatmodel.MessageView, error) {
	path, err := a.convPath(key)
	if err != nil {
		return nil, err
	}
	var out []chatmodel.MessageView
	return out, a.do(ctx, http.MethodGet, path, nil, &out)
}

func (a *API) Send(ctx context.Context, to chatmodel.ConversationKey, text, image string) (*chatmodel.MessageView, error) {
	var path string
	switch {
	case to.IsGroup():
		path = "/api/messages/group/" + to.GroupID
	case to.Partner(a.self) != "":
		path = "/api/messages/send/" + to.Partner(a.self)
	default:
		return nil, fmt.Errorf("conversation %s does not involve %s", to, a.self)
	}
	out := new(chatmodel.MessageView)
	body := map[string]string{"text": text, "image": image}
	if err := a.do(ctx, http.MethodPost, path, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Delete(ctx context.Context, ids []string, scope chatmodel.DeleteScope) error {
	body := map[string]any{"messageIds": ids, "deleteFor": scope}
	return a.do(ctx, http.MethodDelete, "/api/messages", body, nil)
}

func (a *API) Clear(ctx context.Context, partnerID string) error {
	return a.do(ctx, http.MethodDelete, "/api/messages/clear/"+partnerID, nil, nil)
}

func (a *API) Online(ctx context.Context) ([]string, error) {
	var out []string
	return out, a.do(ctx, http.MethodGet, "/api/presence", nil, &out)
}

func (a *API) convPath(key chatmodel.ConversationKey) (string, error) {
	if key.IsGroup() {
		return "/api/messages/group/" + key.GroupID, nil
	}
	if p := key.Partner(a.self); p != "" {
		return "/api/messages/" + p, nil
	}
	return "", fmt.Errorf("conversation %s does not involve %s", key, a.self)
}
