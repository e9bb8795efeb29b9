package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/bootstrap"
	"github.com/MrEthical07/goSession/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// collectionPaths maps collection names to their list endpoints.
var collectionPaths = []struct {
	name string
	path string
}{
	{bootstrap.Channels, "/api/channels/channels/"},
	{bootstrap.ChannelGroups, "/api/channels/groups/"},
	{bootstrap.Playlists, "/api/m3u/accounts/"},
	{bootstrap.EPGSources, "/api/epg/sources/"},
	{bootstrap.EPGData, "/api/epg/epgdata/"},
	{bootstrap.Logos, "/api/channels/logos/"},
	{bootstrap.StreamProfiles, "/api/core/streamprofiles/"},
	{bootstrap.UserAgents, "/api/core/useragents/"},
}

const settingsPath = "/api/core/settings/"

// restLoader fetches one collection and checks it decodes as JSON.
type restLoader struct {
	client *http.Client
	url    string
	name   string
	logger *zap.Logger
}

func (l restLoader) LoadAll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: status %d", l.url, resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("GET %s: decode: %w", l.url, err)
	}
	l.logger.Debug("collection loaded", zap.String("collection", l.name), zap.Int("bytes", len(body)))
	return nil
}

// registerCollections wires the settings loader and every collection loader onto b.
// The loaders authenticate through the Manager that Build returns; bind it to the
// returned source.
func registerCollections(b *goSession.Builder, baseURL string, timeout time.Duration, logger *zap.Logger) *lateSource {
	src := &lateSource{}

	client := &http.Client{
		Timeout:   timeout,
		Transport: &transport.Bearer{Source: src},
	}
	base := strings.TrimRight(baseURL, "/")

	b.WithSettingsLoader(restLoader{client: client, url: base + settingsPath, name: bootstrap.Settings, logger: logger})
	for _, c := range collectionPaths {
		b.WithCollection(c.name, restLoader{client: client, url: base + c.path, name: c.name, logger: logger})
	}
	return src
}

// lateSource forwards to a Manager that does not exist yet when loaders are built.
type lateSource struct {
	m *goSession.Manager
}

func (s *lateSource) bind(m *goSession.Manager) { s.m = m }

func (s *lateSource) AccessToken(ctx context.Context) (string, bool) {
	if s.m == nil {
		return "", false
	}
	return s.m.AccessToken(ctx)
}

func printReport(cmd *cobra.Command, report bootstrap.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "loaded %d collections in %s\n", len(report.Loaded), report.Duration.Round(time.Millisecond))
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  failed %-16s %v\n", f.Collection, f.Err)
	}
}
