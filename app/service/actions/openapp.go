package actions

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"sam/app/session"
	"sam/app/ui"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// Launcher starts a desktop application by its spoken name. Split out so the
// open_app flow can be tested without touching the OS.
type Launcher interface {
	Launch(name string) error
}

type execLauncher struct{}

func NewLauncher(di *do.Injector) (Launcher, error) {
	return execLauncher{}, nil
}

func (execLauncher) Launch(name string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", "-a", name)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", name)
	default:
		cmd = exec.Command("xdg-open", name)
	}

	if err := cmd.Start(); err != nil {
		return oops.Wrapf(err, "failed to launch %s", name)
	}

	return nil
}

// Opener resolves the app name, asks the launcher to start it and narrates
// the outcome. An empty app_name falls back to the last app the user opened
// this session.
type Opener struct {
	launcher Launcher
	voice    ui.Voice
}

func NewOpener(di *do.Injector) (*Opener, error) {
	return &Opener{
		launcher: do.MustInvoke[Launcher](di),
		voice:    do.MustInvoke[ui.Voice](di),
	}, nil
}

func (o *Opener) Open(ctx context.Context, appName string, sink ui.Sink, mem *session.Memory) {
	appName = strings.TrimSpace(appName)
	if appName == "" {
		appName = mem.LastOpenedApp()
	}
	if appName == "" {
		o.voice.Say(ctx, "Sir, which application should I open?", sink)
		return
	}

	if err := o.launcher.Launch(appName); err != nil {
		o.voice.Say(ctx, fmt.Sprintf("Sir, I could not open %s.", appName), sink)
		return
	}

	mem.SetLastOpenedApp(appName)
	o.voice.Say(ctx, fmt.Sprintf("Opening %s, Sir.", appName), sink)
}
