package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/charmbracelet/log"

	"rhythmpath/geom"
	"rhythmpath/planner"
	"rhythmpath/trajectory"
	"rhythmpath/worker"
)

const previewFPS = 30

// PreviewGUI is the interactive trajectory preview window
type PreviewGUI struct {
	app    fyne.App
	window fyne.Window
	logger *log.Logger

	// UI components
	view       *PlanView
	timeSlider *widget.Slider
	timeLabel  *widget.Label
	statusBar  *widget.Label
	presetSel  *widget.Select
	seedEntry  *widget.Entry
	replanBtn  *widget.Button
	playBtn    *widget.Button

	// State
	notes     []planner.NoteEvent
	start     geom.Vec2
	renderer  sharedRenderer // set by the planning goroutine, read by the slider and player
	replanner worker.Replanner
	nextID    int
	stopPlay  context.CancelFunc
}

// NewPreviewGUI creates the preview window for notes
func NewPreviewGUI(ctx context.Context, notes []planner.NoteEvent, preset string, seed int64) *PreviewGUI {
	myApp := app.New()
	myApp.SetIcon(theme.MediaPlayIcon())

	window := myApp.NewWindow("RhythmPath - Trajectory Preview")
	window.Resize(fyne.NewSize(1100, 760))
	window.SetMaster()

	gui := &PreviewGUI{
		app:    myApp,
		window: window,
		logger: log.FromContext(ctx),
		notes:  notes,
	}
	gui.replanner.Pool = &worker.Pool{}

	gui.createComponents(preset, seed)
	gui.window.SetContent(gui.createLayout())
	return gui
}

// createComponents creates all UI widgets
func (gui *PreviewGUI) createComponents(preset string, seed int64) {
	gui.view = NewPlanView()

	gui.timeLabel = widget.NewLabel("0.00s")
	gui.timeSlider = widget.NewSlider(0, 1)
	gui.timeSlider.Step = 1.0 / previewFPS
	gui.timeSlider.OnChanged = func(t float64) {
		gui.showTime(t)
	}

	gui.statusBar = widget.NewLabel("")

	names := make([]string, 0, len(GetPresets()))
	for name := range GetPresets() {
		names = append(names, name)
	}
	sort.Strings(names)
	gui.presetSel = widget.NewSelect(names, nil)
	if preset == "" {
		preset = "classic"
	}
	gui.presetSel.SetSelected(preset)

	gui.seedEntry = widget.NewEntry()
	gui.seedEntry.SetText(strconv.FormatInt(seed, 10))

	gui.replanBtn = widget.NewButtonWithIcon("Re-plan", theme.ViewRefreshIcon(), gui.replan)
	gui.playBtn = widget.NewButtonWithIcon("Play", theme.MediaPlayIcon(), gui.togglePlay)
}

// createLayout arranges the view above the transport and planner controls
func (gui *PreviewGUI) createLayout() fyne.CanvasObject {
	controls := container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Preset", gui.presetSel),
			widget.NewFormItem("Seed", gui.seedEntry),
		),
		container.NewHBox(
			gui.replanBtn,
			widget.NewButtonWithIcon("Next Seed", theme.MediaSkipNextIcon(), func() {
				seed, _ := strconv.ParseInt(gui.seedEntry.Text, 10, 64)
				gui.seedEntry.SetText(strconv.FormatInt(seed+1, 10))
				gui.replan()
			}),
		),
		widget.NewLabel("Drag: pan • Scroll/±: zoom • Dbl-click/Space: reset"),
	)

	transport := container.NewBorder(nil, nil, gui.playBtn, gui.timeLabel, gui.timeSlider)

	return container.NewBorder(
		nil,
		container.NewVBox(transport, gui.statusBar),
		nil,
		widget.NewCard("Planner", "", controls),
		gui.view,
	)
}

// replan submits the current preset and seed; any plan still in flight is
// cancelled.
func (gui *PreviewGUI) replan() {
	preset, ok := GetPresetByName(gui.presetSel.Selected)
	if !ok {
		dialog.ShowError(fmt.Errorf("unknown preset %q", gui.presetSel.Selected), gui.window)
		return
	}
	seed, err := strconv.ParseInt(gui.seedEntry.Text, 10, 64)
	if err != nil {
		dialog.ShowError(fmt.Errorf("invalid seed: %w", err), gui.window)
		return
	}

	cfg := preset.Config(gui.start)
	cfg.Seed = seed
	gui.nextID++
	req := worker.Request{ID: gui.nextID, Config: cfg, Notes: gui.notes, MaxSolutions: 1}

	gui.statusBar.SetText(fmt.Sprintf("Planning %d notes with %s, seed %d...", len(gui.notes), gui.presetSel.Selected, seed))
	started := time.Now()
	ctx := log.WithContext(context.Background(), gui.logger)
	ch := gui.replanner.Submit(ctx, req)

	go func() {
		resp, ok := <-ch
		if !ok {
			return // superseded
		}
		if resp.Err != nil {
			gui.statusBar.SetText(fmt.Sprintf("Planning failed: %v", resp.Err))
			return
		}
		gui.setPlan(resp.Results[0], cfg)
		gui.statusBar.SetText(fmt.Sprintf("Seed %d planned in %v", seed, time.Since(started).Truncate(time.Millisecond)))
	}()
}

// setPlan swaps in a new trajectory and rewinds to 0
func (gui *PreviewGUI) setPlan(plan trajectory.PlanResult, cfg planner.Config) {
	opts := DefaultRenderOptions(cfg.CharacterSize, cfg.WallThickness)
	opts.Width, opts.Height, opts.Supersample = 960, 540, 1

	renderer, err := NewFrameRenderer(plan, opts)
	if err != nil {
		dialog.ShowError(fmt.Errorf("failed to render plan: %w", err), gui.window)
		return
	}
	gui.renderer.Set(renderer)
	gui.timeSlider.Max = max(plan.Duration(), gui.timeSlider.Step)
	gui.timeSlider.SetValue(0)
	gui.showTime(0)
}

func (gui *PreviewGUI) showTime(t float64) {
	gui.timeLabel.SetText(fmt.Sprintf("%.2fs", t))
	if frame, ok := gui.renderer.Render(t); ok {
		gui.view.SetFrame(frame)
	}
}

// togglePlay starts or stops animating the time slider
func (gui *PreviewGUI) togglePlay() {
	if gui.stopPlay != nil {
		gui.stopPlay()
		gui.stopPlay = nil
		gui.playBtn.SetText("Play")
		gui.playBtn.SetIcon(theme.MediaPlayIcon())
		return
	}
	if gui.renderer.Get() == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	gui.stopPlay = cancel
	gui.playBtn.SetText("Stop")
	gui.playBtn.SetIcon(theme.MediaStopIcon())

	start := time.Now().Add(-time.Duration(gui.timeSlider.Value * float64(time.Second)))
	go func() {
		ticker := time.NewTicker(time.Second / previewFPS)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				t := now.Sub(start).Seconds()
				if r := gui.renderer.Get(); r == nil || t > r.Duration() {
					t = 0
					start = now
				}
				gui.timeSlider.SetValue(t)
			}
		}
	}()
}

// Run shows the window, plans the first trajectory and blocks until closed
func (gui *PreviewGUI) Run(start geom.Vec2) {
	gui.start = start
	gui.replan()
	gui.window.ShowAndRun()
	gui.replanner.Cancel()
	if gui.stopPlay != nil {
		gui.stopPlay()
	}
}
