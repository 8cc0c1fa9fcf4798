package testsupport

import (
	"context"
	"fmt"
	"sync"

	"amreingest/internal/pipeline"
)

// UnitResult is one scripted reply to a transfer or ingest status poll.
type UnitResult struct {
	Status pipeline.UnitStatus
	Err    error
}

// PackageResult is one scripted reply to a package status poll.
type PackageResult struct {
	Status pipeline.PackageStatus
	Err    error
}

// Unit returns a scripted unit reply with the given status.
func Unit(status string) UnitResult {
	return UnitResult{Status: pipeline.UnitStatus{Status: status}}
}

// AwaitingApproval returns a USER_INPUT reply for directory.
func AwaitingApproval(directory string) UnitResult {
	return UnitResult{Status: pipeline.UnitStatus{Status: pipeline.StatusUserInput, Directory: directory}}
}

// NoData returns a scripted soft failure.
func NoData() UnitResult {
	return UnitResult{Err: &pipeline.Error{Op: "fake", Code: pipeline.CodeServerConn}}
}

// Package returns a scripted package reply with the given status.
func Package(status string) PackageResult {
	return PackageResult{Status: pipeline.PackageStatus{Status: status}}
}

// FakePipeline is a scripted pipeline.Client. Scripted replies are consumed
// in order and the last one repeats. Unscripted transfers report USER_INPUT
// so launches succeed; unscripted ingest and package polls report no data.
type FakePipeline struct {
	mu sync.Mutex

	transfers map[string][]UnitResult
	ingests   map[string][]UnitResult
	packages  map[string][]PackageResult
	startErrs map[string]error
	approvals []error

	PipelineList      []pipeline.Pipeline
	ProcessingConfigs map[string]bool
	Inventory         map[string]pipeline.Package

	started        []string
	approved       []string
	transferPolls  int
	ingestPolls    int
	packagePolls   int
	OnStart        func(packageID string)
	OnTransferPoll func(transferID string)
}

// NewFakePipeline returns a fake that knows the test pipeline and the
// "default" processing configuration.
func NewFakePipeline() *FakePipeline {
	return &FakePipeline{
		transfers:         make(map[string][]UnitResult),
		ingests:           make(map[string][]UnitResult),
		packages:          make(map[string][]PackageResult),
		startErrs:         make(map[string]error),
		PipelineList:      []pipeline.Pipeline{{UUID: TestPipelineID, Description: "test"}},
		ProcessingConfigs: map[string]bool{"default": true},
		Inventory:         make(map[string]pipeline.Package),
	}
}

// TransferIDFor returns the transfer id the fake assigns to packageID.
func TransferIDFor(packageID string) string {
	return "transfer-" + packageID
}

// ScriptTransfer sets the replies for transfer status polls of transferID.
func (f *FakePipeline) ScriptTransfer(transferID string, results ...UnitResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transfers[transferID] = results
}

// ScriptIngest sets the replies for ingest status polls of packageID.
func (f *FakePipeline) ScriptIngest(packageID string, results ...UnitResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingests[packageID] = results
}

// ScriptPackage sets the replies for package status polls of packageID.
func (f *FakePipeline) ScriptPackage(packageID string, results ...PackageResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[packageID] = results
}

// FailStart makes StartReingest for packageID return err.
func (f *FakePipeline) FailStart(packageID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErrs[packageID] = err
}

// ScriptApprovals sets the results of successive ApproveTransfer calls. A nil
// entry approves; calls beyond the script approve.
func (f *FakePipeline) ScriptApprovals(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals = errs
}

// Started returns the package ids passed to StartReingest.
func (f *FakePipeline) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// Approved returns the directories passed to ApproveTransfer.
func (f *FakePipeline) Approved() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.approved...)
}

// Polls returns the number of transfer, ingest and package status calls.
func (f *FakePipeline) Polls() (transfer, ingest, pkg int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transferPolls, f.ingestPolls, f.packagePolls
}

func (f *FakePipeline) StartReingest(_ context.Context, pipelineID, packageID, _ string) (pipeline.Reingest, error) {
	f.mu.Lock()
	f.started = append(f.started, packageID)
	err := f.startErrs[packageID]
	hook := f.OnStart
	f.mu.Unlock()

	if hook != nil {
		hook(packageID)
	}
	if err != nil {
		return pipeline.Reingest{}, err
	}
	if pipelineID != TestPipelineID {
		return pipeline.Reingest{}, fmt.Errorf("%w: unknown pipeline %s", pipeline.ErrRejected, pipelineID)
	}
	return pipeline.Reingest{ReingestUUID: TransferIDFor(packageID)}, nil
}

func (f *FakePipeline) TransferStatus(_ context.Context, transferID string) (pipeline.UnitStatus, error) {
	f.mu.Lock()
	f.transferPolls++
	script, ok := f.transfers[transferID]
	var result UnitResult
	if ok {
		result, f.transfers[transferID] = next(script)
	} else {
		result = AwaitingApproval(transferID + "-dir")
	}
	hook := f.OnTransferPoll
	f.mu.Unlock()

	if hook != nil {
		hook(transferID)
	}
	return result.Status, result.Err
}

func (f *FakePipeline) IngestStatus(_ context.Context, packageID string) (pipeline.UnitStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingestPolls++
	script, ok := f.ingests[packageID]
	if !ok {
		return pipeline.UnitStatus{}, NoData().Err
	}
	var result UnitResult
	result, f.ingests[packageID] = next(script)
	return result.Status, result.Err
}

func (f *FakePipeline) PackageStatus(_ context.Context, packageID string) (pipeline.PackageStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packagePolls++
	script, ok := f.packages[packageID]
	if !ok {
		return pipeline.PackageStatus{}, NoData().Err
	}
	var result PackageResult
	result, f.packages[packageID] = next(script)
	return result.Status, result.Err
}

func (f *FakePipeline) ApproveTransfer(_ context.Context, directory string) (pipeline.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, directory)
	if len(f.approvals) > 0 {
		err := f.approvals[0]
		f.approvals = f.approvals[1:]
		if err != nil {
			return pipeline.Approval{}, err
		}
	}
	return pipeline.Approval{Message: "Approval successful."}, nil
}

func (f *FakePipeline) Pipelines(context.Context) ([]pipeline.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.Pipeline(nil), f.PipelineList...), nil
}

func (f *FakePipeline) ProcessingConfigExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ProcessingConfigs[name], nil
}

func (f *FakePipeline) CompressedPackages(context.Context) (map[string]pipeline.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]pipeline.Package, len(f.Inventory))
	for id, pkg := range f.Inventory {
		out[id] = pkg
	}
	return out, nil
}

// next pops the head of script, keeping the final entry in place.
func next[T any](script []T) (T, []T) {
	if len(script) == 0 {
		var zero T
		return zero, script
	}
	if len(script) == 1 {
		return script[0], script
	}
	return script[0], script[1:]
}

var _ pipeline.Client = (*FakePipeline)(nil)
