package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"

	config "linkpost/configs"
	"linkpost/internal/models"
	"linkpost/internal/transfer"
)

const linkedinAPIBaseURL = "https://api.linkedin.com/v2"

// LinkedInService is the outbound gateway to LinkedIn. It performs single
// attempts only; retry policy belongs to the callers.
type LinkedInService interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*transfer.TokenResult, error)
	VerifyAccessToken(ctx context.Context, accessToken string) (bool, error)
	GetProfile(ctx context.Context, accessToken string) (*transfer.LinkedInProfile, error)
	PublishPost(ctx context.Context, accessToken, content string, link *models.LinkAttachment) (string, error)
	GetSocialActions(ctx context.Context, accessToken, postID string) (*models.PostStats, error)
}

type linkedInService struct {
	oauth   *oauth2.Config
	client  *http.Client
	baseURL string
}

func NewLinkedInService(cfg config.Config) LinkedInService {
	return &linkedInService{
		oauth: &oauth2.Config{
			ClientID:     cfg.LinkedInClientID,
			ClientSecret: cfg.LinkedInClientSecret,
			RedirectURL:  cfg.LinkedInRedirectURI,
			Scopes:       []string{"r_emailaddress", "r_liteprofile", "w_member_social"},
			Endpoint:     linkedin.Endpoint,
		},
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: linkedinAPIBaseURL,
	}
}

func (s *linkedInService) AuthURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

func (s *linkedInService) ExchangeCode(ctx context.Context, code string) (*transfer.TokenResult, error) {
	if code == "" {
		err := errors.New("authorization code is empty")
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %s", models.ErrValidation, err.Error())
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	expiresIn := int64(0)
	if !token.Expiry.IsZero() {
		expiresIn = int64(time.Until(token.Expiry).Seconds())
	}

	return &transfer.TokenResult{
		AccessToken: token.AccessToken,
		ExpiresIn:   expiresIn,
	}, nil
}

// VerifyAccessToken reports whether the token can fetch the caller's own
// profile. Any non-2xx answer means invalid; only transport failures return
// an error.
func (s *linkedInService) VerifyAccessToken(ctx context.Context, accessToken string) (bool, error) {
	req, err := s.newRequest(ctx, http.MethodGet, "/me", accessToken, nil)
	if err != nil {
		return false, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return false, fmt.Errorf("verifying access token: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

func (s *linkedInService) GetProfile(ctx context.Context, accessToken string) (*transfer.LinkedInProfile, error) {
	req, err := s.newRequest(ctx, http.MethodGet, "/me", accessToken, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Info(fmt.Sprintf("profile fetch returned status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: linkedin profile fetch returned status %d", models.ErrAuth, resp.StatusCode)
	}

	var profile transfer.LinkedInProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("decoding profile response: %w", err)
	}

	return &profile, nil
}

// PublishPost creates a UGC post, with ARTICLE media when a link attachment
// is present. It returns the LinkedIn post id. No retry on failure: the
// first attempt may have landed server-side and retrying risks a duplicate.
func (s *linkedInService) PublishPost(ctx context.Context, accessToken, content string, link *models.LinkAttachment) (string, error) {
	profile, err := s.GetProfile(ctx, accessToken)
	if err != nil {
		return "", err
	}

	share := transfer.UGCShareContent{
		ShareCommentary:    transfer.UGCText{Text: content},
		ShareMediaCategory: "NONE",
	}
	if link != nil {
		title := link.Title
		if title == "" {
			title = "Shared link"
		}
		media := transfer.UGCMedia{
			Status:      "READY",
			OriginalURL: link.URL,
			Title:       &transfer.UGCText{Text: title},
		}
		if link.Description != "" {
			media.Description = &transfer.UGCText{Text: link.Description}
		}
		share.ShareMediaCategory = "ARTICLE"
		share.Media = []transfer.UGCMedia{media}
	}

	body := transfer.UGCPostRequest{
		Author:         fmt.Sprintf("urn:li:person:%s", profile.ID),
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]transfer.UGCShareContent{
			"com.linkedin.ugc.ShareContent": share,
		},
		Visibility: map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/ugcPosts", accessToken, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: %s", models.ErrPublish, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Info(fmt.Sprintf("ugcPosts returned status %d: %s", resp.StatusCode, raw))
		return "", fmt.Errorf("%w: linkedin returned status %d", models.ErrPublish, resp.StatusCode)
	}

	var result transfer.UGCPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return "", fmt.Errorf("%w: decoding publish response: %s", models.ErrPublish, err.Error())
	}
	if result.ID == "" {
		result.ID = "unknown"
	}

	return result.ID, nil
}

func (s *linkedInService) GetSocialActions(ctx context.Context, accessToken, postID string) (*models.PostStats, error) {
	path := fmt.Sprintf("/socialActions/%s", url.PathEscape(postID))
	req, err := s.newRequest(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("fetching social actions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Info(fmt.Sprintf("socialActions returned status %d", resp.StatusCode))
		return nil, fmt.Errorf("social actions fetch returned status %d", resp.StatusCode)
	}

	var actions transfer.SocialActionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&actions); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("decoding social actions response: %w", err)
	}

	return &models.PostStats{
		Likes:    actions.LikesSummary.TotalLikes,
		Comments: actions.CommentsSummary.AggregatedTotalComments,
	}, nil
}

func (s *linkedInService) newRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	return req, nil
}
