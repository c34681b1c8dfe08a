package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gastropos/gastropos/internal/gate"
	"github.com/gastropos/gastropos/internal/rbac"
)

// openSession logs in with the configured credentials and returns the gate
// primitives bound to that session. The caller must Close the controller.
func openSession(ctx context.Context, cfg cliConfig) (*gate.Controller, *gate.Store, error) {
	if cfg.email == "" || cfg.password == "" {
		return nil, nil, errors.New("credentials required: set --email/--password or GASTROPOS_EMAIL/GASTROPOS_PASSWORD")
	}

	client, err := gate.NewClient(cfg.server, nil)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := gate.NewStore(client, gate.NewMemoryMirror(), logger)
	controller := gate.NewController(client, gate.Options{
		Permissions: store,
		Logger:      logger,
	})

	res := controller.Login(ctx, gate.Credentials{Email: cfg.email, Password: cfg.password})
	if !res.Success {
		controller.Close()
		if res.Err != nil {
			return nil, nil, fmt.Errorf("login: %w", res.Err)
		}
		return nil, nil, errors.New("login failed")
	}
	// Login triggers an async grant load; force a synchronous one so the
	// verdicts below never see the loading window.
	store.Load(ctx)
	return controller, store, nil
}

func runWhoami(ctx context.Context, cfg cliConfig) error {
	controller, _, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	sess := controller.Snapshot()
	if sess.User == nil {
		return errors.New("no identity bound to session")
	}
	fmt.Printf("id:    %d\n", sess.User.ID)
	fmt.Printf("name:  %s\n", sess.User.Name)
	fmt.Printf("email: %s\n", sess.User.Email)
	fmt.Printf("role:  %s\n", sess.User.Role)
	return nil
}

func runCan(ctx context.Context, cfg cliConfig, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: gastroctl can <resource> <action>")
	}
	controller, store, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	guard := gate.NewGuard(controller, store, "")
	verdict := guard.Evaluate("/"+args[0], gate.Requirement{
		Resource: rbac.Resource(args[0]),
		Action:   rbac.Action(args[1]),
	})
	switch verdict.Kind {
	case gate.VerdictAllowed:
		fmt.Println("allowed")
		return nil
	case gate.VerdictDenied:
		fmt.Println(verdict.Reason)
	default:
		fmt.Printf("%s: %s\n", verdict.Kind, verdict.Reason)
	}
	return errExit
}

func runResources(ctx context.Context, cfg cliConfig) error {
	controller, store, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	accessible := store.AccessibleResources()
	if len(accessible) == 0 {
		fmt.Println("no accessible resources")
		return nil
	}
	fmt.Printf("%-12s %-6s %-5s %-6s %-6s\n", "RESOURCE", "CREATE", "READ", "UPDATE", "DELETE")
	for _, resource := range accessible {
		crud := store.ResourcePermissions(resource)
		fmt.Printf("%-12s %-6s %-5s %-6s %-6s\n", resource,
			mark(crud.Create), mark(crud.Read), mark(crud.Update), mark(crud.Delete))
	}
	return nil
}

func runSeed(ctx context.Context, cfg cliConfig) error {
	controller, store, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	if err := store.Seed(ctx); err != nil {
		return fmt.Errorf("seed permissions: %w", err)
	}
	fmt.Println("default permission matrix installed")
	return nil
}

func runTrail(ctx context.Context, cfg cliConfig) error {
	controller, store, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer controller.Close()

	store.Refresh(ctx)
	for _, crumb := range controller.Breadcrumbs().Snapshot() {
		fmt.Printf("%s  %-14s %s\n", crumb.At.Format("15:04:05.000"), crumb.Kind, crumb.Detail)
	}
	return nil
}

// errExit signals a clean non-zero exit without an "error:" prefix line.
var errExit = errors.New("")

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}
