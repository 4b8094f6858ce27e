package main

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/twinlayout/sceneedit/internal/api"
	"github.com/twinlayout/sceneedit/internal/commands"
	"github.com/twinlayout/sceneedit/internal/config"
	"github.com/twinlayout/sceneedit/internal/dispatcher"
	"github.com/twinlayout/sceneedit/internal/editor"
	"github.com/twinlayout/sceneedit/internal/floor"
	"github.com/twinlayout/sceneedit/internal/importer"
	"github.com/twinlayout/sceneedit/internal/influx"
	"github.com/twinlayout/sceneedit/internal/logging"
	"github.com/twinlayout/sceneedit/internal/storage"
	v1 "github.com/twinlayout/sceneedit/internal/storage/memory/export/v1"
	wsstorage "github.com/twinlayout/sceneedit/internal/storage/websocket"
	"github.com/twinlayout/sceneedit/pkg/streaming"
)

const usage = `usage:
  sceneedit replay <scene.json> <events.jsonl> [floor]
  sceneedit export <scene.json> <out.json[.gz]>
  sceneedit floors <scene.json>
  sceneedit version`

// ErrUsage is returned for unknown commands or missing arguments.
var ErrUsage = errors.New(usage)

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch strings.ToLower(args[0]) {
	case "replay":
		if len(args) < 3 {
			return ErrUsage
		}
		floorLabel := ""
		if len(args) > 3 {
			floorLabel = args[3]
		}
		return replay(ctx, args[1], args[2], floorLabel, out)
	case "export":
		if len(args) < 3 {
			return ErrUsage
		}
		return exportScene(args[1], args[2], out)
	case "floors":
		if len(args) < 2 {
			return ErrUsage
		}
		return listFloors(args[1], out)
	case "version":
		fmt.Fprintf(out, "%s %s (%s)\n", AppName, CurrentVersion, BuildDate)
		return nil
	}
	return ErrUsage
}

// scriptEvent is one line of a replay script.
type scriptEvent struct {
	Command string    `json:"command"`
	Args    []string  `json:"args"`
	At      time.Time `json:"at"`
}

func readScript(path string) ([]dispatcher.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []dispatcher.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var se scriptEvent
		if err := json.Unmarshal([]byte(text), &se); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, dispatcher.Event{Command: se.Command, Args: se.Args, Timestamp: se.At})
	}
	return events, scanner.Err()
}

// ReplaySummary is printed after a replay.
type ReplaySummary struct {
	SceneID  string
	Entities int
	Floors   int
	Events   int
	Failed   int
	History  int
	Backend  string
}

func replay(ctx context.Context, scenePath, scriptPath, floorLabel string, out io.Writer) error {
	scene, err := importer.ImportFile(scenePath)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", scenePath, err)
	}
	events, err := readScript(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	session, err := editor.New(editor.Dependencies{
		Logger:          Logger,
		Context:         SceneContext,
		Snap:            config.GetSnapConfig(),
		HistoryCapacity: config.GetHistoryConfig().Capacity,
		DragThrottle:    config.GetDragConfig(),
	})
	if err != nil {
		return err
	}
	session.Load(scene)
	if floorLabel != "" {
		session.SetActiveFloor(floorLabel)
	}

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	if ws, ok := backend.(*wsstorage.Backend); ok {
		session.AddListener(editor.CommitListenerFunc(func(_ context.Context, c editor.Commit) {
			if err := ws.PublishCommit(streaming.CommitPayload{
				SceneID:     c.SceneID,
				Action:      c.Action,
				EntityCount: len(c.Entities),
				Cursor:      c.Cursor,
			}); err != nil {
				Logger.Warn("Failed to publish commit", "error", err)
			}
		}))
	}

	metrics := influx.NewManager(ZLogger, config.GetInfluxConfig(), influxBackupPath())
	if err := metrics.Connect(ctx); err == nil {
		session.AddListener(metrics)
		defer metrics.Close()
	} else if !errors.Is(err, influx.ErrDisabled) {
		Logger.Warn("Commit metrics disabled", "error", err)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return err
	}
	cmds := commands.NewManager(commands.Dependencies{
		Session:    session,
		Backend:    backend,
		Uploader:   uploader(ctx, backend),
		LogManager: SlogManager,
		UploadTag:  "replay",
	})
	cmds.RegisterHandlers(d)

	sum := ReplaySummary{SceneID: scene.ID, Events: len(events), Backend: storageCfg.Type}
	for _, e := range events {
		res, err := d.Dispatch(e)
		if err != nil {
			sum.Failed++
			fmt.Fprintf(out, "%s %v: %v\n", e.Command, e.Args, err)
			continue
		}
		if o, ok := res.(editor.Outcome); ok && o.Message != "" {
			Logger.Debug("Command outcome", "command", e.Command, "changed", o.Changed, "message", o.Message)
		}
	}

	if _, err := d.Dispatch(dispatcher.Event{Command: ":SAVE:"}); err != nil {
		d.Close()
		return fmt.Errorf("failed to save scene: %w", err)
	}
	d.Close()
	if err := OTelProvider.Flush(ctx); err != nil {
		Logger.Warn("Failed to flush telemetry", "error", err)
	}
	if n := cmds.Pending(); n > 0 {
		return fmt.Errorf("%d scene snapshot(s) could not be written", n)
	}

	final := session.Scene()
	sum.Entities = len(final.Entities)
	sum.Floors = len(floor.Levels(final.Entities))
	sum.History = session.HistoryLen()

	fmt.Fprintf(out, "scene %s: %d entities on %d floors, %d events (%d failed), %d history steps, saved to %s\n",
		sum.SceneID, sum.Entities, sum.Floors, sum.Events, sum.Failed, sum.History, sum.Backend)
	return nil
}

// uploader returns an API client when the backend writes export files and
// the scene service answers its healthcheck.
func uploader(ctx context.Context, backend storage.Backend) commands.Uploader {
	if _, ok := backend.(storage.Uploadable); !ok {
		return nil
	}
	apiCfg := config.GetAPIConfig()
	if apiCfg.ServerURL == "" {
		return nil
	}
	client := api.New(apiCfg.ServerURL, apiCfg.APIKey, api.WithRetries(2, time.Second))
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Healthcheck(hctx); err != nil {
		Logger.Info("Scene service unavailable, uploads disabled", "url", apiCfg.ServerURL, "error", err)
		return nil
	}
	return client
}

func exportScene(scenePath, outPath string, out io.Writer) error {
	scene, err := importer.ImportFile(scenePath)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", scenePath, err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	if strings.HasSuffix(outPath, ".gz") {
		zw := gzip.NewWriter(f)
		defer zw.Close()
		w = zw
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v1.Build(scene)); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Fprintf(out, "exported %s (%d entities) to %s\n", scene.ID, len(scene.Entities), outPath)
	return nil
}

func listFloors(scenePath string, out io.Writer) error {
	scene, err := importer.ImportFile(scenePath)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", scenePath, err)
	}

	counts := floor.Counts(scene.Entities)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOOR\tNAME\tENTITIES")
	listed := make(map[string]bool)
	for _, f := range scene.Floors {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", f.ID, f.Name, counts[f.ID])
		listed[f.ID] = true
	}
	for _, label := range floor.Levels(scene.Entities) {
		if !listed[label] {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", label, "", counts[label])
		}
	}
	if n := counts[""]; n > 0 {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", "-", "(all floors)", n)
	}
	return tw.Flush()
}
