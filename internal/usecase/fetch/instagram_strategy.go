package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"omninews-ingest/internal/domain/entity"
	"omninews-ingest/internal/domain/omniverr"
	"omninews-ingest/internal/infra/webdriver"
)

const (
	instagramGraphQLDocID = "7898261790222653"
	instagramReadyWait    = 5 * time.Second
	instagramLoginPoll    = 3 * time.Second
	instagramLoginMaxWait = 30 * time.Second
	kstOffsetSeconds      = 9 * 60 * 60
)

// InstagramStrategy implements StrategyInstagram (Omninews_instagram):
// GraphQL fetch of a profile's recent posts, with a UI-text-matching
// login flow when the session is logged out. See §4.4 for the exact
// request shape and field mapping.
type InstagramStrategy struct {
	pool        *webdriver.Pool
	acquireWait time.Duration
	username    string
	password    string
}

func NewInstagramStrategy(pool *webdriver.Pool, acquireWait time.Duration, username, password string) *InstagramStrategy {
	if acquireWait <= 0 {
		acquireWait = 10 * time.Second
	}
	return &InstagramStrategy{pool: pool, acquireWait: acquireWait, username: username, password: password}
}

func (s *InstagramStrategy) Fetch(ctx context.Context, channel *entity.Channel) (FetchedChannel, error) {
	session, err := s.pool.Acquire(ctx, webdriver.WaitTimeout(s.acquireWait))
	if err != nil {
		return FetchedChannel{}, err
	}
	poisoned := false
	defer func() {
		if poisoned {
			session.Poison()
		} else {
			session.Release()
		}
	}()

	page, err := session.Page(ctx)
	if err != nil {
		poisoned = true
		return FetchedChannel{}, omniverr.WebDriver(err)
	}
	defer page.Close()

	igUsername := extractInstagramUsername(channel.Link)

	if err := webdriver.WaitReady(page, "https://www.instagram.com/"+igUsername+"/", instagramReadyWait); err != nil {
		poisoned = true
		return FetchedChannel{}, omniverr.WebDriver(err)
	}

	body, err := s.graphQLRequest(page, igUsername)
	if err != nil {
		poisoned = true
		return FetchedChannel{}, omniverr.WebDriver(err)
	}

	if len(body) <= 200 {
		if err := s.login(page); err != nil {
			poisoned = true
			return FetchedChannel{}, err
		}
		body, err = s.graphQLRequest(page, igUsername)
		if err != nil {
			poisoned = true
			return FetchedChannel{}, omniverr.WebDriver(err)
		}
	}

	return parseInstagramResponse(body)
}

func (s *InstagramStrategy) graphQLRequest(page *rod.Page, username string) (string, error) {
	variables := fmt.Sprintf(
		`{"data":{"count":12,"include_relationship_info":false,"latest_besties_reel_media":false,"latest_reel_media":true},"username":%q}`,
		username)

	const js = `(docID, variables) => fetch('/graphql/query', {method: 'POST', credentials: 'include', headers: {'Content-Type': 'application/x-www-form-urlencoded'}, body: new URLSearchParams({doc_id: docID, variables: variables})}).then(r => r.text())`

	result, err := page.Eval(js, instagramGraphQLDocID, variables)
	if err != nil {
		return "", err
	}
	return result.Value.Str(), nil
}

// login implements the bilingual form-field-detection login flow
// (§4.4): navigate to the site root, locate the login form by input
// `name` attribute, submit credentials, dismiss the "save login info"
// prompt (Korean "정보 저장" or English "Save info"), and poll every 3s
// up to ~30s for the form to disappear.
func (s *InstagramStrategy) login(page *rod.Page) error {
	if s.username == "" || s.password == "" {
		return omniverr.WebDriver(fmt.Errorf("instagram credentials not configured"))
	}

	if err := page.Navigate("https://www.instagram.com/"); err != nil {
		return err
	}

	const detectForm = `() => !!(document.querySelector('input[name="username"]') && document.querySelector('input[name="password"]'))`
	result, err := page.Eval(detectForm)
	if err != nil {
		return err
	}
	if !result.Value.Bool() {
		return omniverr.WebDriverNotFound()
	}

	const fill = `(user, pass) => { document.querySelector('input[name="username"]').value = user; document.querySelector('input[name="password"]').value = pass; document.querySelector('input[name="username"]').dispatchEvent(new Event('input', {bubbles: true})); document.querySelector('input[name="password"]').dispatchEvent(new Event('input', {bubbles: true})); const form = document.querySelector('input[name="password"]').closest('form'); if (form) form.requestSubmit(); }`
	if _, err := page.Eval(fill, s.username, s.password); err != nil {
		return err
	}

	const dismissPrompt = `() => { const body = document.body.innerText || ''; if (body.includes('정보 저장') || body.includes('Save info')) { const btns = Array.from(document.querySelectorAll('button')); const btn = btns.find(b => (b.innerText || '').includes('Not now') || (b.innerText || '').includes('나중에')); if (btn) btn.click(); } }`

	deadline := time.Now().Add(instagramLoginMaxWait)
	for time.Now().Before(deadline) {
		time.Sleep(instagramLoginPoll)
		if _, err := page.Eval(dismissPrompt); err != nil {
			return err
		}
		gone, err := page.Eval(detectForm)
		if err != nil {
			return err
		}
		if !gone.Value.Bool() {
			return nil
		}
	}
	return omniverr.WebDriverNotFound()
}

func extractInstagramUsername(channelLink string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(channelLink), "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

// parseInstagramResponse maps
// data.xdt_api__v1__feed__user_timeline_graphql_connection.edges[*].node
// to RawItems per §4.4.
func parseInstagramResponse(body string) (FetchedChannel, error) {
	type imageCandidate struct {
		URL string `json:"url"`
	}
	type node struct {
		Caption struct {
			Text      string `json:"text"`
			CreatedAt int64  `json:"created_at"`
		} `json:"caption"`
		TakenAt int64  `json:"taken_at"`
		Code    string `json:"code"`
		User    struct {
			FullName string `json:"full_name"`
		} `json:"user"`
		ImageVersions2 struct {
			Candidates []imageCandidate `json:"candidates"`
		} `json:"image_versions2"`
	}
	type edge struct {
		Node node `json:"node"`
	}
	type response struct {
		Data struct {
			Connection struct {
				Edges []edge `json:"edges"`
			} `json:"xdt_api__v1__feed__user_timeline_graphql_connection"`
		} `json:"data"`
	}

	var parsed response
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return FetchedChannel{}, omniverr.ParseRSSChannel(err)
	}

	items := make([]RawItem, 0, len(parsed.Data.Connection.Edges))
	for _, e := range parsed.Data.Connection.Edges {
		n := e.Node

		title, description := splitCaption(n.Caption.Text)

		ts := n.Caption.CreatedAt
		if ts == 0 {
			ts = n.TakenAt
		}

		imageLink := ""
		if len(n.ImageVersions2.Candidates) > 0 {
			imageLink = n.ImageVersions2.Candidates[0].URL
		}

		items = append(items, RawItem{
			Link:        "http://instagram.com/p/" + n.Code,
			Title:       title,
			Description: description,
			Author:      n.User.FullName,
			PubDate:     unixToKSTRFC2822(ts),
			ImageLink:   imageLink,
		})
	}

	return FetchedChannel{RawItems: items}, nil
}

func splitCaption(caption string) (title, description string) {
	description = caption
	if idx := strings.IndexByte(caption, '\n'); idx >= 0 {
		title = caption[:idx]
	} else {
		title = caption
	}
	return title, description
}

// unixToKSTRFC2822 converts a Unix-seconds timestamp to UTC, applies
// the +09:00 KST offset, and formats it as an RFC-2822-equivalent
// string so the Instagram strategy's output is uniform with every
// other strategy's PubDate field.
func unixToKSTRFC2822(unixSeconds int64) string {
	kst := time.FixedZone("KST", kstOffsetSeconds)
	t := time.Unix(unixSeconds, 0).In(kst)
	return t.Format(time.RFC1123Z)
}
