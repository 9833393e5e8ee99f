// Package github is the pull-request side of jib's sync. It finds,
// creates and edits PRs and manages review requests, either through the
// GitHub REST API or by shelling out to the gh CLI, behind one Client
// interface.
package github

import "time"

// AuthMethod represents the authentication method for GitHub.
type AuthMethod string

const (
	// AuthToken uses a personal access token for authentication.
	AuthToken AuthMethod = "token"
	// AuthOAuth uses OAuth device flow for authentication.
	AuthOAuth AuthMethod = "oauth"
	// AuthGHCLI uses the gh CLI's stored credentials.
	AuthGHCLI AuthMethod = "gh_cli"
)

// PRInfo represents pull request information.
type PRInfo struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	State      string    `json:"state"`   // "open", "closed", "merged"
	Draft      bool      `json:"isDraft"` // gh CLI uses isDraft
	URL        string    `json:"url"`
	HeadBranch string    `json:"headRefName"` // gh CLI uses headRefName
	BaseBranch string    `json:"baseRefName"` // gh CLI uses baseRefName
	Author     string    `json:"-"`
	Reviewers  []string  `json:"-"` // populated from reviewRequests
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RepoInfo identifies the repository jib is operating on.
type RepoInfo struct {
	Owner         string
	Name          string
	DefaultBranch string
}

// CreatePROptions holds options for creating a pull request.
type CreatePROptions struct {
	Title      string // PR title (required)
	Body       string // PR body/description
	HeadBranch string // Source branch (required; the pushed bookmark)
	BaseBranch string // Target branch (defaults to repo default branch)
	Draft      bool   // Create as draft PR
}

// UpdatePROptions holds the pull request fields to change. Nil fields
// are left untouched.
type UpdatePROptions struct {
	Title *string
	Body  *string
	Base  *string
}

// ghPRResponse represents the JSON response from gh pr view/list.
// Used internally for JSON parsing before converting to PRInfo.
type ghPRResponse struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	State       string `json:"state"`
	IsDraft     bool   `json:"isDraft"`
	URL         string `json:"url"`
	HeadRefName string `json:"headRefName"`
	BaseRefName string `json:"baseRefName"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ReviewRequests []struct {
		Login string `json:"login"`
	} `json:"reviewRequests"`
}

// toPRInfo converts a ghPRResponse to PRInfo.
func (r *ghPRResponse) toPRInfo() *PRInfo {
	pr := &PRInfo{
		Number:     r.Number,
		Title:      r.Title,
		Body:       r.Body,
		State:      r.State,
		Draft:      r.IsDraft,
		URL:        r.URL,
		HeadBranch: r.HeadRefName,
		BaseBranch: r.BaseRefName,
		Author:     r.Author.Login,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}

	// Team review requests come back without a login; only user
	// reviewers participate in reconciliation.
	for _, req := range r.ReviewRequests {
		if req.Login != "" {
			pr.Reviewers = append(pr.Reviewers, req.Login)
		}
	}

	return pr
}

// ghRepoResponse represents the JSON response from gh repo view.
type ghRepoResponse struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
	DefaultBranchRef struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
}
