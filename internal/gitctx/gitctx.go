// Package gitctx derives the repository, commit and pull request a run
// belongs to, from GitHub Actions variables or the local git checkout.
package gitctx

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Context identifies the revision under test
type Context struct {
	Repository string
	CommitSHA  string
	Branch     string
	PRNumber   int
	EventName  string
	InActions  bool
}

// IsPullRequest reports whether the run belongs to a pull request
func (c *Context) IsPullRequest() bool {
	return c.PRNumber > 0
}

// eventPayload is the part of the webhook payload we read
type eventPayload struct {
	Number      int `json:"number"`
	PullRequest *struct {
		Number int `json:"number"`
		Head   struct {
			SHA string `json:"sha"`
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
}

// runGit runs a git command in the working directory
var runGit = func(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Detect builds the context from the environment. getenv is usually
// os.Getenv. Outside of Actions the commit and branch come from git.
func Detect(getenv func(string) string) (*Context, error) {
	c := &Context{
		Repository: getenv("GITHUB_REPOSITORY"),
		EventName:  getenv("GITHUB_EVENT_NAME"),
		InActions:  getenv("GITHUB_ACTIONS") == "true",
	}

	if sha := getenv("GITHUB_SHA"); sha != "" {
		c.CommitSHA = sha
		c.Branch = strings.TrimPrefix(getenv("GITHUB_REF"), "refs/heads/")

		if isPullRequestEvent(c.EventName) {
			if path := getenv("GITHUB_EVENT_PATH"); path != "" {
				if err := c.applyEvent(path); err != nil {
					return nil, err
				}
			}
		}
		return c, nil
	}

	return c, c.fromGit()
}

func isPullRequestEvent(name string) bool {
	return name == "pull_request" || name == "pull_request_target"
}

// applyEvent takes the head commit and branch from a pull request payload
func (c *Context) applyEvent(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read event payload: %w", err)
	}

	var payload eventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse event payload: %w", err)
	}
	if payload.PullRequest == nil {
		return nil
	}

	if payload.PullRequest.Head.SHA != "" {
		c.CommitSHA = payload.PullRequest.Head.SHA
	}
	c.Branch = payload.PullRequest.Head.Ref
	c.PRNumber = payload.PullRequest.Number
	if c.PRNumber == 0 {
		c.PRNumber = payload.Number
	}
	return nil
}

// fromGit fills the commit and branch from the local checkout
func (c *Context) fromGit() error {
	sha, err := runGit("rev-parse", "HEAD")
	if err != nil {
		return fmt.Errorf("failed to get current commit: %w", err)
	}
	c.CommitSHA = sha

	branch, err := runGit("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return fmt.Errorf("failed to get current branch: %w", err)
	}
	if branch != "HEAD" {
		c.Branch = branch
	}
	return nil
}
