package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// NewGitHubClient creates a GitHub client with rate limiting. If GITHUB_TOKEN
// is set, the client is authenticated for higher limits.
func NewGitHubClient() (*github.Client, error) {
	// Handles primary and secondary (abuse detection) rate limits with automatic retry
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	client := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}
	return client, nil
}

// GitHubSource reads samples laid out as one directory per lecture under a
// repository path, each holding <key>.en.vtt, <key>.info.json and <key>.mp4.
type GitHubSource struct {
	client   *github.Client
	owner    string
	repo     string
	basePath string
	tempDir  string
	logger   *slog.Logger
}

// NewGitHubSource creates a GitHubSource.
func NewGitHubSource(client *github.Client, owner, repo, basePath, tempDir string, logger *slog.Logger) *GitHubSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubSource{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: basePath,
		tempDir:  tempDir,
		logger:   logger,
	}
}

// Samples streams one sample per lecture directory.
func (g *GitHubSource) Samples(ctx context.Context, fn func(Sample) error) error {
	dirs, err := g.listSampleDirs(ctx)
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		s, err := g.fetchSample(ctx, dir)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// LatestCommitSHA returns the SHA of the most recent commit touching the dataset path.
func (g *GitHubSource) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := g.client.Repositories.ListCommits(ctx, g.owner, g.repo, &github.CommitsListOptions{
		Path:        g.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", g.basePath)
	}
	return *commits[0].SHA, nil
}

func (g *GitHubSource) listSampleDirs(ctx context.Context) ([]string, error) {
	_, contents, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, g.basePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", g.basePath, err)
	}

	var dirs []string
	for _, item := range contents {
		if item.GetType() == "dir" {
			dirs = append(dirs, item.GetName())
		}
	}
	return dirs, nil
}

func (g *GitHubSource) fetchSample(ctx context.Context, dir string) (Sample, error) {
	dirPath := path.Join(g.basePath, dir)
	_, contents, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dirPath, nil)
	if err != nil {
		return Sample{}, fmt.Errorf("failed to get contents of %s: %w", dirPath, err)
	}

	s := Sample{Key: dir, Origin: fmt.Sprintf("github.com/%s/%s/%s", g.owner, g.repo, dirPath)}
	for _, item := range contents {
		if item.GetType() != "file" {
			continue
		}
		name := item.GetName()
		_, suffix := splitMember(name)
		filePath := path.Join(dirPath, name)

		switch suffix {
		case VTTSuffix:
			s.VTT, err = g.fetchText(ctx, filePath)
		case InfoSuffix:
			s.InfoJSON, err = g.fetchText(ctx, filePath)
		case VideoSuffix:
			s.VideoPath, err = g.download(ctx, filePath)
		}
		if err != nil {
			s.Close()
			return Sample{}, err
		}
	}

	if !s.Complete() {
		g.logger.Debug("sample directory incomplete", "dir", dirPath, "missing", strings.Join(s.Missing(), ","))
	}
	return s, nil
}

func (g *GitHubSource) fetchText(ctx context.Context, filePath string) ([]byte, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, filePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", filePath, err)
	}
	if file == nil {
		return nil, fmt.Errorf("no file content returned for %s", filePath)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", filePath, err)
	}
	return []byte(content), nil
}

// download streams a file too large for the contents API to a temp file.
func (g *GitHubSource) download(ctx context.Context, filePath string) (string, error) {
	rc, _, err := g.client.Repositories.DownloadContents(ctx, g.owner, g.repo, filePath, nil)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", filePath, err)
	}
	defer rc.Close()

	return spool(rc, g.tempDir)
}
