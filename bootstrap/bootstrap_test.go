package bootstrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func allCollections() []string {
	return []string{Channels, ChannelGroups, Playlists, EPGSources, EPGData, Logos, StreamProfiles, UserAgents}
}

func TestRunSettingsPrecedeCollections(t *testing.T) {
	var settingsDone atomic.Bool
	var early atomic.Int64

	c := NewCoordinator(nil).SetSettings(LoaderFunc(func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		settingsDone.Store(true)
		return nil
	}))
	for _, name := range allCollections() {
		c.Add(name, LoaderFunc(func(context.Context) error {
			if !settingsDone.Load() {
				early.Add(1)
			}
			return nil
		}))
	}

	report := c.Run(context.Background())
	if !report.OK() {
		t.Fatalf("expected clean run, got %v", report.Failures)
	}
	if early.Load() != 0 {
		t.Fatalf("%d collections started before settings finished", early.Load())
	}
	if len(report.Loaded) != len(allCollections())+1 {
		t.Fatalf("expected %d loaded, got %v", len(allCollections())+1, report.Loaded)
	}
}

func TestRunCollectionsLoadConcurrently(t *testing.T) {
	names := allCollections()
	var arrived sync.WaitGroup
	arrived.Add(len(names))
	barrier := make(chan struct{})
	go func() {
		arrived.Wait()
		close(barrier)
	}()

	c := NewCoordinator(nil)
	for _, name := range names {
		c.Add(name, LoaderFunc(func(ctx context.Context) error {
			arrived.Done()
			select {
			case <-barrier:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("siblings never started")
			}
		}))
	}

	if report := c.Run(context.Background()); !report.OK() {
		t.Fatalf("expected every collection to run concurrently, got %v", report.Failures)
	}
}

func TestRunFailureIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	epgErr := errors.New("epg backend 500")
	var playlistsLoaded atomic.Bool

	c := NewCoordinator(zap.New(core))
	c.Add(EPGSources, LoaderFunc(func(context.Context) error { return epgErr }))
	c.Add(Playlists, LoaderFunc(func(context.Context) error {
		time.Sleep(10 * time.Millisecond)
		playlistsLoaded.Store(true)
		return nil
	}))
	c.Add(Logos, LoaderFunc(func(context.Context) error { panic("logo decoder") }))

	report := c.Run(context.Background())

	if !playlistsLoaded.Load() {
		t.Fatal("playlists must load despite the epg failure")
	}
	if !report.Failed(EPGSources) || !report.Failed(Logos) || report.Failed(Playlists) {
		t.Fatalf("unexpected failures %v", report.Failures)
	}
	for _, f := range report.Failures {
		if f.Collection == EPGSources && !errors.Is(f, epgErr) {
			t.Fatalf("expected wrapped epg error, got %v", f)
		}
	}
	if got := logs.FilterMessage("collection load failed").Len(); got != 2 {
		t.Fatalf("expected 2 logged failures, got %d", got)
	}
}

func TestRunSettingsFailureSkipsCollections(t *testing.T) {
	settingsErr := errors.New("settings unavailable")
	var started atomic.Int32
	collection := LoaderFunc(func(context.Context) error {
		started.Add(1)
		return nil
	})
	c := NewCoordinator(nil).
		SetSettings(LoaderFunc(func(context.Context) error { return settingsErr })).
		Add(Channels, collection).
		Add(Playlists, collection)

	report := c.Run(context.Background())
	if got := started.Load(); got != 0 {
		t.Fatalf("expected no collection to load without settings, %d started", got)
	}
	if len(report.Failures) != 1 || !report.Failed(Settings) || !errors.Is(report.Failures[0], settingsErr) {
		t.Fatalf("expected a single settings failure, got %v", report.Failures)
	}
	if len(report.Loaded) != 0 {
		t.Fatalf("expected nothing loaded, got %v", report.Loaded)
	}
}

func TestAddReplacesDuplicateName(t *testing.T) {
	var second atomic.Bool
	c := NewCoordinator(nil).
		Add(Channels, LoaderFunc(func(context.Context) error { return errors.New("stale loader") })).
		Add(Channels, LoaderFunc(func(context.Context) error {
			second.Store(true)
			return nil
		}))

	if got := c.Collections(); len(got) != 1 {
		t.Fatalf("expected a single registration, got %v", got)
	}
	if report := c.Run(context.Background()); !report.OK() || !second.Load() {
		t.Fatalf("expected replacement loader to run, got %v", report.Failures)
	}
}
