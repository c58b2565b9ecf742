/*
Package winsys defines the window-system facade.

# Overview

Manager abstracts the OS window layer behind a single interface. The
production implementation lives in the agent subpackage and talks to the
native window agent over HTTP; winsystest provides an in-memory fake for
tests; Unavailable() gives a degraded implementation for running without
an agent.

# Usage

	var mgr winsys.Manager = agent.New(cfg, logger, metrics)

	windows, err := mgr.EnumerateProcessWindows(ctx, pid)
	if err != nil {
		return err
	}

	if err := mgr.ActivateWindow(ctx, windows[0].ID); err != nil {
		return mgr.ForceToForeground(ctx, windows[0].ID)
	}
*/
package winsys
