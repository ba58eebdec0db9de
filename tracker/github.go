package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/corvana/dispatch/types"
	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// GitHub implements types.TrackerClient on top of the GitHub issues API.
//
// Item IDs are issue numbers rendered as decimal strings. Labels map to
// issue labels, assignees to issue assignees, and change requests to pull
// requests. Rate-limit and server errors are classified as transient so
// the caller's retry budget applies; the client itself never retries.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// Compile-time assertion that GitHub implements TrackerClient.
var _ types.TrackerClient = (*GitHub)(nil)

// NewGitHub creates a tracker client for owner/repo.
//
// Parameters:
//   - owner: Repository owner or organization
//   - repo: Repository name
//   - token: Personal access token; empty uses unauthenticated access
//
// Returns:
//   - *GitHub: Tracker client bound to the repository
func NewGitHub(owner, repo, token string) *GitHub {
	var httpClient *http.Client
	if token != "" {
		httpClient = oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		))
	}

	return &GitHub{client: github.NewClient(httpClient), owner: owner, repo: repo}
}

// ListItems issues one paginated broad query for items matching filter.
func (g *GitHub) ListItems(ctx context.Context, filter types.ItemFilter, window types.Window) ([]types.WorkItem, error) {
	state := filter.State
	if state == "" {
		state = "all"
	}

	opts := &github.IssueListByRepoOptions{
		State:       state,
		Labels:      filter.Labels,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if !window.Since.IsZero() {
		opts.Since = window.Since
	}

	var out []types.WorkItem
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, classify("list items", err)
		}

		for _, issue := range issues {
			// Pull requests surface through the issues API as well.
			if issue.IsPullRequest() {
				continue
			}
			item := toWorkItem(issue)
			if filter.Unassigned && item.Assignee != "" {
				continue
			}
			if !window.Contains(item.CreatedAt) {
				continue
			}
			out = append(out, item)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

// GetItem fetches the current state of one issue.
func (g *GitHub) GetItem(ctx context.Context, id string) (*types.WorkItem, error) {
	number, err := itemNumber(id)
	if err != nil {
		return nil, err
	}

	issue, resp, err := g.client.Issues.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", types.ErrItemNotFound, id)
		}

		return nil, classify("get item", err)
	}

	item := toWorkItem(issue)

	return &item, nil
}

// SetLabel adds or removes a label. GitHub treats duplicate adds as
// no-ops; removing an absent label returns 404, which is absorbed here to
// keep the operation idempotent.
func (g *GitHub) SetLabel(ctx context.Context, id, label string, present bool) error {
	number, err := itemNumber(id)
	if err != nil {
		return err
	}

	if present {
		_, _, err = g.client.Issues.AddLabelsToIssue(ctx, g.owner, g.repo, number, []string{label})
		if err != nil {
			return classify("add label", err)
		}

		return nil
	}

	resp, err := g.client.Issues.RemoveLabelForIssue(ctx, g.owner, g.repo, number, label)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}

		return classify("remove label", err)
	}

	return nil
}

// SetAssignee sets the issue assignee; empty workerID unassigns.
func (g *GitHub) SetAssignee(ctx context.Context, id, workerID string) error {
	number, err := itemNumber(id)
	if err != nil {
		return err
	}

	if workerID == "" {
		issue, _, getErr := g.client.Issues.Get(ctx, g.owner, g.repo, number)
		if getErr != nil {
			return classify("get item", getErr)
		}
		current := make([]string, 0, len(issue.Assignees))
		for _, a := range issue.Assignees {
			current = append(current, a.GetLogin())
		}
		if len(current) == 0 {
			return nil
		}
		_, _, err = g.client.Issues.RemoveAssignees(ctx, g.owner, g.repo, number, current)
		if err != nil {
			return classify("remove assignees", err)
		}

		return nil
	}

	_, _, err = g.client.Issues.AddAssignees(ctx, g.owner, g.repo, number, []string{workerID})
	if err != nil {
		return classify("add assignee", err)
	}

	return nil
}

// AddComment appends a comment to the issue.
func (g *GitHub) AddComment(ctx context.Context, id, text string) error {
	number, err := itemNumber(id)
	if err != nil {
		return err
	}

	_, _, err = g.client.Issues.CreateComment(ctx, g.owner, g.repo, number, &github.IssueComment{
		Body: github.String(text),
	})
	if err != nil {
		return classify("add comment", err)
	}

	return nil
}

// ListComments returns the issue's comments, oldest first.
func (g *GitHub) ListComments(ctx context.Context, id string) ([]string, error) {
	number, err := itemNumber(id)
	if err != nil {
		return nil, err
	}

	opts := &github.IssueListCommentsOptions{
		Sort:        github.String("created"),
		Direction:   github.String("asc"),
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var out []string
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, g.owner, g.repo, number, opts)
		if err != nil {
			return nil, classify("list comments", err)
		}
		for _, c := range comments {
			out = append(out, c.GetBody())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

// ListEvents returns the issue timeline, oldest first. This is the
// expensive per-item fallback used by the telemetry collector.
func (g *GitHub) ListEvents(ctx context.Context, id string) ([]types.ItemEvent, error) {
	number, err := itemNumber(id)
	if err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: 100}

	var out []types.ItemEvent
	for {
		events, resp, err := g.client.Issues.ListIssueTimeline(ctx, g.owner, g.repo, number, opts)
		if err != nil {
			return nil, classify("list events", err)
		}
		for _, ev := range events {
			entry := types.ItemEvent{Kind: ev.GetEvent()}
			if ev.Actor != nil {
				entry.Actor = ev.Actor.GetLogin()
			}
			if ev.Assignee != nil {
				// For assignment events the assignee is the worker.
				entry.Actor = ev.Assignee.GetLogin()
			}
			if ev.CreatedAt != nil {
				entry.At = ev.CreatedAt.Time
			}
			out = append(out, entry)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return out, nil
}

// OpenChangeRequest opens a pull request from branch and returns its
// number as the change request ID.
func (g *GitHub) OpenChangeRequest(ctx context.Context, branch, title, body string) (string, error) {
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return "", classify("get repository", err)
	}

	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branch),
		Base:  github.String(repo.GetDefaultBranch()),
		Body:  github.String(body),
	})
	if err != nil {
		return "", classify("open change request", err)
	}

	return strconv.Itoa(pr.GetNumber()), nil
}

// toWorkItem converts a GitHub issue into the mirrored read-only model.
func toWorkItem(issue *github.Issue) types.WorkItem {
	item := types.WorkItem{
		ID:    strconv.Itoa(issue.GetNumber()),
		Title: issue.GetTitle(),
		Body:  issue.GetBody(),
	}
	for _, l := range issue.Labels {
		item.Labels = append(item.Labels, l.GetName())
	}
	if issue.Assignee != nil {
		item.Assignee = issue.Assignee.GetLogin()
	}
	if issue.CreatedAt != nil {
		item.CreatedAt = issue.CreatedAt.Time
	}
	if issue.ClosedAt != nil {
		t := issue.ClosedAt.Time
		item.ClosedAt = &t
	}

	return item
}

// itemNumber parses a work item ID into an issue number.
func itemNumber(id string) (int, error) {
	number, err := strconv.Atoi(id)
	if err != nil {
		return 0, fmt.Errorf("%w: item id %q is not an issue number", types.ErrMalformedItem, id)
	}

	return number, nil
}

// classify wraps err, marking rate limits, aborts, and server errors as
// transient so the caller's backoff applies.
func classify(op string, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %s: %w", types.ErrTransient, op, err)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode >= 500 {
		return fmt.Errorf("%w: %s: %w", types.ErrTransient, op, err)
	}

	// Timeouts and connection resets surface as url.Error values.
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s: %w", types.ErrTransient, op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
