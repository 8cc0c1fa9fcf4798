package reingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"amreingest/internal/logging"
	"amreingest/internal/pipeline"
	"amreingest/internal/queue"
	"amreingest/internal/reingest"
	"amreingest/internal/testsupport"
)

const (
	pkgA = "00000000-0000-4000-8000-00000000000a"
	pkgB = "00000000-0000-4000-8000-00000000000b"
	pkgC = "00000000-0000-4000-8000-00000000000c"
	pkgD = "00000000-0000-4000-8000-00000000000d"
)

func newEngine(t *testing.T, fake *testsupport.FakePipeline, opts ...testsupport.ConfigOption) (*reingest.Engine, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	return reingest.NewEngine(cfg, store, fake, logging.NewNop()), store
}

func TestAdmitLaunchesNewJob(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithThrottle(1))
	testsupport.MustLoad(t, store, pkgA)

	result, err := engine.Admit(context.Background())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Launched != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Drained {
		t.Fatal("queue with an in-flight job should not be drained")
	}

	job := testsupport.MustGet(t, store, pkgA)
	if job.Status != queue.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", job.Status)
	}
	if job.TransferID != testsupport.TransferIDFor(pkgA) {
		t.Fatalf("unexpected transfer id %q", job.TransferID)
	}
	if job.StartTime == nil {
		t.Fatal("expected start time to be set")
	}
	approved := fake.Approved()
	if len(approved) != 1 || approved[0] != testsupport.TransferIDFor(pkgA)+"-dir" {
		t.Fatalf("unexpected approvals %v", approved)
	}
}

func TestReconcileCompletesUploadedPackage(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake)
	testsupport.MustStart(t, store, pkgB, "transfer-b")
	fake.ScriptTransfer("transfer-b", testsupport.Unit(pipeline.StatusComplete))
	fake.ScriptIngest(pkgB, testsupport.Unit(pipeline.StatusComplete))
	fake.ScriptPackage(pkgB, testsupport.Package(pipeline.PackageUploaded))

	result, err := engine.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.Checked != 1 || result.Completed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	job := testsupport.MustGet(t, store, pkgB)
	if job.Status != queue.StatusComplete {
		t.Fatalf("expected COMPLETE, got %s", job.Status)
	}
	if job.EndTime == nil || job.StartTime == nil || job.EndTime.Before(*job.StartTime) {
		t.Fatalf("expected end_time >= start_time, got %+v", job)
	}
	if _, ok := job.ProcessingTime(); !ok {
		t.Fatal("expected processing time to be computable")
	}
	if job.TransferID != "transfer-b" {
		t.Fatalf("transfer id changed to %q", job.TransferID)
	}
}

func TestReconcileIsIdempotentWhileInIngest(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake)
	testsupport.MustStart(t, store, pkgC, "transfer-c")
	fake.ScriptTransfer("transfer-c", testsupport.Unit(pipeline.StatusComplete))
	fake.ScriptIngest(pkgC, testsupport.Unit(pipeline.StatusProcessing))
	fake.ScriptPackage(pkgC, testsupport.Package("STAGING"))

	before := testsupport.MustGet(t, store, pkgC)
	for i := 0; i < 2; i++ {
		result, err := engine.Reconcile(context.Background())
		if err != nil {
			t.Fatalf("Reconcile failed: %v", err)
		}
		if result.InIngest != 1 || result.Completed != 0 {
			t.Fatalf("pass %d: unexpected result %+v", i, result)
		}
	}
	after := testsupport.MustGet(t, store, pkgC)
	if after.Status != queue.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", after.Status)
	}
	if !after.UpdatedAt.Equal(before.UpdatedAt) || after.EndTime != nil || after.TransferID != before.TransferID {
		t.Fatalf("row changed: before %+v after %+v", before, after)
	}
}

func TestReconcileTreatsMissingDataAsNoop(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake)
	testsupport.MustStart(t, store, pkgA, "transfer-a")
	fake.ScriptTransfer("transfer-a", testsupport.NoData())
	fake.ScriptIngest(pkgA, testsupport.Unit(pipeline.StatusComplete))

	result, err := engine.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if result.Completed != 0 {
		t.Fatalf("expected no completion without package status, got %+v", result)
	}
	if job := testsupport.MustGet(t, store, pkgA); job.Status != queue.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", job.Status)
	}
	transfer, ingest, pkg := fake.Polls()
	if transfer != 1 || ingest != 1 || pkg != 1 {
		t.Fatalf("expected one poll per signal, got %d/%d/%d", transfer, ingest, pkg)
	}
}

func TestAdmitMarksRejectedLaunchAsError(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake)
	testsupport.MustLoad(t, store, pkgD)
	fake.FailStart(pkgD, pipeline.ErrRejected)

	for i := 0; i < 3; i++ {
		if _, err := engine.Admit(context.Background()); err != nil {
			t.Fatalf("Admit %d failed: %v", i, err)
		}
	}

	job := testsupport.MustGet(t, store, pkgD)
	if job.Status != queue.StatusError {
		t.Fatalf("expected ERROR, got %s", job.Status)
	}
	if job.Message == "" {
		t.Fatal("expected a failure message")
	}
	if job.TransferID != "" {
		t.Fatalf("expected no transfer id, got %q", job.TransferID)
	}
	if started := fake.Started(); len(started) != 1 {
		t.Fatalf("ERROR job must not be retried, started %v", started)
	}
}

func TestAdmitReportsDrainedAfterLastFailure(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake)
	testsupport.MustLoad(t, store, pkgD)
	fake.FailStart(pkgD, errors.New("boom"))

	result, err := engine.Admit(context.Background())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Failed != 1 || !result.Drained {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestAdmitRespectsThrottle(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithThrottle(2))
	testsupport.MustStart(t, store, pkgA, "transfer-a")
	testsupport.MustLoad(t, store, pkgB, pkgC, pkgD)

	result, err := engine.Admit(context.Background())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Pool != 1 || result.Launched != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if started := fake.Started(); len(started) != 1 || started[0] != pkgB {
		t.Fatalf("expected only %s to start, got %v", pkgB, started)
	}
	count, err := store.Count(context.Background(), queue.StatusNew)
	if err != nil || count != 2 {
		t.Fatalf("Count(NEW) = %d, %v", count, err)
	}
}

func TestAdmitLaunchesNothingWhenPoolExhausted(t *testing.T) {
	ids := []string{pkgA, pkgB, pkgC}
	for throttle := 1; throttle <= len(ids); throttle++ {
		fake := testsupport.NewFakePipeline()
		engine, store := newEngine(t, fake, testsupport.WithThrottle(throttle))
		for _, id := range ids[:throttle] {
			testsupport.MustStart(t, store, id, "transfer-"+id)
		}
		testsupport.MustLoad(t, store, pkgD)

		result, err := engine.Admit(context.Background())
		if err != nil {
			t.Fatalf("throttle %d: Admit failed: %v", throttle, err)
		}
		if result.Launched != 0 || len(fake.Started()) != 0 {
			t.Fatalf("throttle %d: expected no launches, got %+v", throttle, result)
		}
		if result.Pool != 0 {
			t.Fatalf("throttle %d: expected pool 0, got %d", throttle, result.Pool)
		}
	}
}

func TestAdmitDrainedWhenEmpty(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, _ := newEngine(t, fake)

	result, err := engine.Admit(context.Background())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !result.Drained || result.Launched != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestLaunchRetriesFailedApproval(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithApprovalRetries(2))
	testsupport.MustLoad(t, store, pkgA)
	fake.ScriptApprovals(pipeline.ErrApproval, nil)

	if _, err := engine.Admit(context.Background()); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if job := testsupport.MustGet(t, store, pkgA); job.Status != queue.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS after retry, got %s (%s)", job.Status, job.Message)
	}
	if approved := fake.Approved(); len(approved) != 2 {
		t.Fatalf("expected two approval attempts, got %v", approved)
	}
}

func TestLaunchWaitsForUserInput(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithApprovalRetries(2))
	testsupport.MustLoad(t, store, pkgA)
	fake.ScriptTransfer(testsupport.TransferIDFor(pkgA),
		testsupport.Unit(pipeline.StatusProcessing),
		testsupport.AwaitingApproval("reingest-a"),
	)

	if _, err := engine.Admit(context.Background()); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if job := testsupport.MustGet(t, store, pkgA); job.Status != queue.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s (%s)", job.Status, job.Message)
	}
	if approved := fake.Approved(); len(approved) != 1 || approved[0] != "reingest-a" {
		t.Fatalf("unexpected approvals %v", approved)
	}
}

func TestLaunchApprovalExhaustion(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithApprovalRetries(2))
	testsupport.MustLoad(t, store, pkgA)
	fake.ScriptApprovals(pipeline.ErrApproval, pipeline.ErrApproval)

	result, err := engine.Admit(context.Background())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	job := testsupport.MustGet(t, store, pkgA)
	if job.Status != queue.StatusError {
		t.Fatalf("expected ERROR, got %s", job.Status)
	}
	if !strings.Contains(job.Message, "not approved after 2 attempts") {
		t.Fatalf("unexpected message %q", job.Message)
	}
	if job.TransferID != "" {
		t.Fatalf("expected no transfer id, got %q", job.TransferID)
	}
}

func TestLaunchStatusPollsAreBounded(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake,
		testsupport.WithApprovalRetries(2),
		testsupport.WithMaxStatusPolls(3),
	)
	testsupport.MustLoad(t, store, pkgA)
	fake.ScriptTransfer(testsupport.TransferIDFor(pkgA), testsupport.NoData())

	if _, err := engine.Admit(context.Background()); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	job := testsupport.MustGet(t, store, pkgA)
	if job.Status != queue.StatusError {
		t.Fatalf("expected ERROR, got %s", job.Status)
	}
	if !strings.Contains(job.Message, "no transfer status after 3 polls") {
		t.Fatalf("unexpected message %q", job.Message)
	}
	if transfer, _, _ := fake.Polls(); transfer != 6 {
		t.Fatalf("expected 6 transfer polls, got %d", transfer)
	}
	if len(fake.Approved()) != 0 {
		t.Fatal("expected no approval attempts")
	}
}

func TestLaunchSleepsLatencyBetweenPolls(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustLoad(t, store, pkgA)
	fake.ScriptTransfer(testsupport.TransferIDFor(pkgA), testsupport.NoData(), testsupport.AwaitingApproval("dir"))

	var slept []time.Duration
	opts := reingest.OptionsFromConfig(cfg)
	opts.Latency = 800 * time.Millisecond
	engine := reingest.NewEngine(cfg, store, fake, logging.NewNop(),
		reingest.WithOptions(opts),
		reingest.WithSleeper(func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		}),
	)

	if _, err := engine.Admit(context.Background()); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if len(slept) != 2 {
		t.Fatalf("expected a sleep before each of 2 polls, got %v", slept)
	}
	for _, d := range slept {
		if d != 800*time.Millisecond {
			t.Fatalf("unexpected sleep %v", d)
		}
	}
}

func TestLaunchCancellationLeavesJobNew(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithMaxStatusPolls(100))
	testsupport.MustLoad(t, store, pkgA)
	fake.ScriptTransfer(testsupport.TransferIDFor(pkgA), testsupport.NoData())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake.OnTransferPoll = func(string) { cancel() }

	_, err := engine.Admit(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	job := testsupport.MustGet(t, store, pkgA)
	if job.Status != queue.StatusNew {
		t.Fatalf("interrupted launch must leave job NEW, got %s", job.Status)
	}
	if transfer, _, _ := fake.Polls(); transfer != 1 {
		t.Fatalf("expected polling to stop after cancellation, got %d polls", transfer)
	}
}

// A run that dies after the pipeline accepted the reingest but before the
// job was recorded leaves no local trace of the remote transfer.
func TestCrashWindowLeavesRemoteReingestUnrecorded(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logPath := filepath.Join(t.TempDir(), "run.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	engine := reingest.NewEngine(cfg, store, fake, logger)
	testsupport.MustLoad(t, store, pkgA)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake.OnStart = func(string) { cancel() }

	_, err = engine.Admit(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected interrupted admission to fail with context.Canceled, got %v", err)
	}
	var interrupted *reingest.InterruptedLaunchError
	if !errors.As(err, &interrupted) || interrupted.TransferID != testsupport.TransferIDFor(pkgA) {
		t.Fatalf("expected interruption to name the started transfer, got %v", err)
	}

	warning := findLogRecord(t, logPath, "launch_interrupted")
	if warning == nil {
		t.Fatal("expected a launch_interrupted warning in the run log")
	}
	if warning["level"] != "warn" ||
		warning[logging.FieldPackageID] != pkgA ||
		warning[logging.FieldTransferID] != testsupport.TransferIDFor(pkgA) ||
		warning[logging.FieldImpact] != "remote reingest running without a local record" {
		t.Fatalf("unexpected warning record %v", warning)
	}
	job := testsupport.MustGet(t, store, pkgA)
	if job.Status != queue.StatusNew || job.TransferID != "" {
		t.Fatalf("expected NEW with no transfer id, got %+v", job)
	}
	if started := fake.Started(); len(started) != 1 || started[0] != pkgA {
		t.Fatalf("expected remote reingest recorded by pipeline, got %v", started)
	}

	fake.OnStart = nil
	if _, err := engine.Admit(context.Background()); err != nil {
		t.Fatalf("second Admit failed: %v", err)
	}
	if started := fake.Started(); len(started) != 2 {
		t.Fatalf("expected the next run to start the package again, got %v", started)
	}
}

func TestAdmitFIFOOrder(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithFIFO(), testsupport.WithThrottle(1))
	testsupport.MustLoad(t, store, pkgC)
	testsupport.MustLoad(t, store, pkgA)

	if _, err := engine.Admit(context.Background()); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if started := fake.Started(); len(started) != 1 || started[0] != pkgC {
		t.Fatalf("expected %s first in FIFO order, got %v", pkgC, started)
	}
}

func TestPreflight(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *testsupport.FakePipeline)
		wantErr bool
	}{
		{name: "ok", mutate: func(*testsupport.FakePipeline) {}},
		{name: "missing pipeline", mutate: func(f *testsupport.FakePipeline) { f.PipelineList = nil }, wantErr: true},
		{name: "missing processing config", mutate: func(f *testsupport.FakePipeline) { f.ProcessingConfigs = map[string]bool{} }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testsupport.NewFakePipeline()
			tt.mutate(fake)
			engine, _ := newEngine(t, fake)
			err := engine.Preflight(context.Background())
			if tt.wantErr {
				if !errors.Is(err, reingest.ErrConfiguration) {
					t.Fatalf("expected ErrConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Preflight failed: %v", err)
			}
		})
	}
}

func TestLoadIfEmpty(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake)
	ctx := context.Background()

	_, _, err := engine.LoadIfEmpty(ctx, func(context.Context) ([]string, error) {
		return queue.ParseBatch([]byte(`"not-a-list-of-ids"`))
	})
	if !errors.Is(err, queue.ErrMalformedBatch) {
		t.Fatalf("expected ErrMalformedBatch, got %v", err)
	}
	if has, _ := store.HasJobs(ctx); has {
		t.Fatal("expected no rows after malformed batch")
	}

	inserted, skipped, err := engine.LoadIfEmpty(ctx, func(context.Context) ([]string, error) {
		return []string{pkgA, pkgB}, nil
	})
	if err != nil || skipped || inserted != 2 {
		t.Fatalf("LoadIfEmpty = %d, %v, %v", inserted, skipped, err)
	}

	inserted, skipped, err = engine.LoadIfEmpty(ctx, func(context.Context) ([]string, error) {
		t.Fatal("source must not be read when the store has jobs")
		return nil, nil
	})
	if err != nil || !skipped || inserted != 0 {
		t.Fatalf("second LoadIfEmpty = %d, %v, %v", inserted, skipped, err)
	}
}

func TestRunReconcilesBeforeAdmitting(t *testing.T) {
	fake := testsupport.NewFakePipeline()
	engine, store := newEngine(t, fake, testsupport.WithThrottle(1))
	testsupport.MustStart(t, store, pkgA, "transfer-a")
	testsupport.MustLoad(t, store, pkgB)
	fake.ScriptIngest(pkgA, testsupport.Unit(pipeline.StatusComplete))
	fake.ScriptPackage(pkgA, testsupport.Package(pipeline.PackageUploaded))

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Reconcile.Completed != 1 || result.Admit.Launched != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if job := testsupport.MustGet(t, store, pkgB); job.Status != queue.StatusInProgress {
		t.Fatalf("expected freed slot to admit %s, got %s", pkgB, job.Status)
	}
}

func findLogRecord(t *testing.T, path, eventType string) map[string]any {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		if record[logging.FieldEventType] == eventType {
			return record
		}
	}
	return nil
}

func TestLaunchFailureHintFollowsErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantHint string
	}{
		{
			name:     "connection",
			err:      &pipeline.Error{Op: "start reingest", Code: pipeline.CodeServerConn},
			wantCode: "error connecting to server",
			wantHint: "check that the storage service and dashboard URLs are reachable",
		},
		{
			name:     "credentials",
			err:      &pipeline.Error{Op: "start reingest", Code: pipeline.CodeInvalidResponse, StatusCode: 403},
			wantCode: "invalid response from server",
			wantHint: "check the API credentials and that the package exists in the storage service",
		},
		{
			name:     "rejected",
			err:      fmt.Errorf("%w: package is not stored", pipeline.ErrRejected),
			wantCode: "unknown error",
			wantHint: "the storage service refused the reingest; check the package and the pipeline uuid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testsupport.NewFakePipeline()
			fake.FailStart(pkgA, tt.err)
			cfg := testsupport.NewConfig(t)
			store := testsupport.MustOpenStore(t, cfg)
			logPath := filepath.Join(t.TempDir(), "run.log")
			logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
			if err != nil {
				t.Fatalf("logging.New: %v", err)
			}
			engine := reingest.NewEngine(cfg, store, fake, logger)
			testsupport.MustLoad(t, store, pkgA)

			if _, err := engine.Admit(context.Background()); err != nil {
				t.Fatalf("Admit failed: %v", err)
			}
			if job := testsupport.MustGet(t, store, pkgA); job.Status != queue.StatusError {
				t.Fatalf("expected ERROR, got %s", job.Status)
			}
			record := findLogRecord(t, logPath, "launch_failed")
			if record == nil {
				t.Fatal("expected a launch_failed record")
			}
			if record["error_code"] != tt.wantCode || record[logging.FieldErrorHint] != tt.wantHint {
				t.Fatalf("unexpected code/hint: %v", record)
			}
		})
	}
}
