package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/output"
	"github.com/vnykmshr/fanflow/pkg/output/spinner"
	"github.com/vnykmshr/fanflow/pkg/scheduling/pipeline"
)

// Step identifies one stage of a task run.
type Step int

const (
	Analyze Step = iota
	Stage
	Commit
	Push
	OpenRequest
)

// Steps lists every step in execution order.
var Steps = []Step{Analyze, Stage, Commit, Push, OpenRequest}

func (s Step) String() string {
	switch s {
	case Analyze:
		return "analyze"
	case Stage:
		return "stage"
	case Commit:
		return "commit"
	case Push:
		return "push"
	case OpenRequest:
		return "open-request"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Title is the heading printed in the step's box.
func (s Step) Title() string {
	switch s {
	case Analyze:
		return "PROMPT ANALYSIS"
	case Stage:
		return "STAGING FILES"
	case Commit:
		return "CREATING COMMIT"
	case Push:
		return "PUSHING TO REMOTE"
	case OpenRequest:
		return "CREATING PULL REQUEST"
	default:
		return strings.ToUpper(s.String())
	}
}

// Durations holds the simulated wait of each step.
type Durations struct {
	Analyze     time.Duration `mapstructure:"analyze"`
	Stage       time.Duration `mapstructure:"stage"`
	Commit      time.Duration `mapstructure:"commit"`
	Push        time.Duration `mapstructure:"push"`
	OpenRequest time.Duration `mapstructure:"open_request"`
}

// DefaultDurations returns 5s, 3s, 1s, 2s and 3s.
func DefaultDurations() Durations {
	return Durations{
		Analyze:     5 * time.Second,
		Stage:       3 * time.Second,
		Commit:      1 * time.Second,
		Push:        2 * time.Second,
		OpenRequest: 3 * time.Second,
	}
}

// Scale multiplies every duration by f.
func (d Durations) Scale(f float64) Durations {
	scale := func(v time.Duration) time.Duration { return time.Duration(float64(v) * f) }
	return Durations{
		Analyze:     scale(d.Analyze),
		Stage:       scale(d.Stage),
		Commit:      scale(d.Commit),
		Push:        scale(d.Push),
		OpenRequest: scale(d.OpenRequest),
	}
}

// Of returns the wait configured for step.
func (d Durations) Of(step Step) time.Duration {
	switch step {
	case Analyze:
		return d.Analyze
	case Stage:
		return d.Stage
	case Commit:
		return d.Commit
	case Push:
		return d.Push
	case OpenRequest:
		return d.OpenRequest
	default:
		return 0
	}
}

// Total is the sum of all step waits, the minimum length of one task run.
func (d Durations) Total() time.Duration {
	var total time.Duration
	for _, s := range Steps {
		total += d.Of(s)
	}
	return total
}

// taskRun carries the state of one task execution through its stages.
type taskRun struct {
	runner  *Runner
	task    TaskSpec
	sink    output.Sink
	spinner bool
}

// pipeline builds the five-stage pipeline for this run.
func (tr *taskRun) pipeline() pipeline.Pipeline {
	r := tr.runner
	p := pipeline.NewWithConfig(pipeline.Config{
		Name:        "agent",
		StopOnError: true,
		Metrics:     r.Metrics,
		Tracer:      r.tracer(),
	})
	p.AddStageFunc(Analyze.String(), tr.analyze)
	p.AddStageFunc(Stage.String(), tr.stage)
	p.AddStageFunc(Commit.String(), tr.commit)
	p.AddStageFunc(Push.String(), tr.push)
	p.AddStageFunc(OpenRequest.String(), tr.openRequest)
	return p
}

func (tr *taskRun) analyze(ctx context.Context, _ any) (any, error) {
	err := tr.step(ctx, Analyze,
		[]string{infoLine("Input", tr.task.Prompt)},
		"Analyzing intent and planning workflow...",
		"Prompt understood. Workflow initialized.")
	return nil, err
}

func (tr *taskRun) stage(ctx context.Context, _ any) (any, error) {
	files := append([]string(nil), tr.task.Files...)
	err := tr.step(ctx, Stage,
		[]string{infoLine("Files", strings.Join(files, ", "))},
		"Staging files to index...",
		fmt.Sprintf("Staged %d file(s) successfully.", len(files)))
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (tr *taskRun) commit(ctx context.Context, input any) (any, error) {
	files, ok := input.([]string)
	if !ok {
		return nil, ffErrors.NewValidationError("agent", "files", input, "commit expects the staged file list")
	}
	err := tr.step(ctx, Commit,
		[]string{
			infoLine("Files", strings.Join(files, ", ")),
			infoLine("Message", tr.task.Message),
		},
		"Writing commit to repository...",
		"Commit created successfully.")
	return nil, err
}

func (tr *taskRun) push(ctx context.Context, _ any) (any, error) {
	err := tr.step(ctx, Push,
		[]string{
			infoLine("Remote", tr.task.Remote),
			infoLine("Branch", tr.task.Branch),
		},
		"Uploading commits to remote...",
		fmt.Sprintf("Pushed to %s/%s.", tr.task.Remote, tr.task.Branch))
	if err != nil {
		return nil, err
	}
	return tr.task.Branch, nil
}

func (tr *taskRun) openRequest(ctx context.Context, input any) (any, error) {
	branch, ok := input.(string)
	if !ok {
		return nil, ffErrors.NewValidationError("agent", "branch", input, "pull request expects the pushed branch")
	}
	err := tr.step(ctx, OpenRequest,
		[]string{
			infoLine("Branch", branch),
			infoLine("Title", tr.task.Title),
			infoLine("Description", Preview(tr.task.Description)),
		},
		"Opening pull request...",
		"Pull request created successfully.")
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// step prints the header and info lines, waits, then prints the outcome.
func (tr *taskRun) step(ctx context.Context, step Step, info []string, waiting, done string) error {
	lines := append([]string{header(step.Title())}, info...)
	lines = append(lines, "")
	if err := tr.sink.Emit(strings.Join(lines, "\n")); err != nil {
		return err
	}

	if check := tr.runner.Check; check != nil {
		if err := check(tr.task, step); err != nil {
			_ = tr.sink.Line(failureLine(err.Error()))
			return err
		}
	}

	if err := tr.wait(ctx, tr.runner.Durations.Of(step), waiting); err != nil {
		_ = tr.sink.Line(failureLine(err.Error()))
		return err
	}
	return tr.sink.Line(successLine(done))
}

// wait simulates the step's operation. With a spinner the message is
// animated on the console and cleared afterwards; otherwise it is printed
// once as a loading line.
func (tr *taskRun) wait(ctx context.Context, d time.Duration, message string) error {
	if tr.spinner {
		s := spinner.Start(ctx, tr.runner.Console.Writer(), message, 0)
		defer s.Stop()
	} else if err := tr.sink.Line(loadingLine(message)); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
