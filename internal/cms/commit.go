package cms

// commit runs one model action through the pipeline:
//
//  1. validate the arguments against the rule set
//  2. dispatch "{kind}.{action}:before", which may replace the first argument
//  3. validate again
//  4. execute the action
//  5. record the old and new state; old is the first argument as the
//     before hook left it, so both sides describe the model execute ran on
//  6. dispatch "{kind}.{action}:after", which may replace the result
//  7. flush the page cache
//  8. return the result
//
// Rule and hook errors are returned unchanged. Nothing is rolled back once
// execute has run.
func commit[T any](m Model, action string, args Args, execute func(args Args) (T, error)) (T, error) {
	var zero T
	app := m.App()
	kind := m.Kind()
	event := string(kind) + "." + action
	start := app.clock.Now()

	result, err := runCommit(m, event, action, args, execute)
	status := "ok"
	if err != nil {
		status = "error"
	}
	took := app.clock.Now().Sub(start)
	CommitsTotal.WithLabelValues(string(kind), action, status).Inc()
	CommitDuration.WithLabelValues(string(kind)).Observe(took.Seconds())

	if err != nil {
		app.logger.Debug("commit failed", "event", event, "id", m.ID(), "error", err)
		return zero, err
	}
	app.logger.Info("commit", "event", event, "id", m.ID(), "duration", took)
	return result, nil
}

func runCommit[T any](m Model, event, action string, args Args, execute func(args Args) (T, error)) (T, error) {
	var zero T
	app := m.App()

	if err := m.validate(action, args); err != nil {
		return zero, err
	}

	first := args[0].Name
	value, err := app.hooks.Apply(event+":before", args, first)
	if err != nil {
		return zero, err
	}
	args = args.With(first, value)

	if err := m.validate(action, args); err != nil {
		return zero, err
	}

	result, err := execute(args)
	if err != nil {
		return zero, err
	}

	after := m.afterArgs(action, ModelState{Old: args[0].Value, New: result})
	out, err := app.hooks.Apply(event+":after", after, after[0].Name)
	if err != nil {
		return zero, err
	}

	if err := app.pageCache.Flush(); err != nil {
		return zero, err
	}

	if out == nil {
		return result, nil
	}
	typed, ok := out.(T)
	if !ok {
		return zero, logicError("hook.result.invalid", map[string]any{"event": event + ":after"})
	}
	return typed, nil
}

// defaultAfterArgs shapes "{newX, oldX}" for kinds without special cases.
func defaultAfterArgs(name string, st ModelState) Args {
	return Args{
		{Name: "new" + name, Value: st.New},
		{Name: "old" + name, Value: st.Old},
	}
}

// pageAfterArgs shapes after-hook arguments for page actions.
func pageAfterArgs(action string, st ModelState) Args {
	switch action {
	case "create":
		return Args{{Name: "page", Value: st.New}}
	case "duplicate":
		return Args{{Name: "duplicatePage", Value: st.New}, {Name: "originalPage", Value: st.Old}}
	case "delete":
		return Args{{Name: "status", Value: st.New}, {Name: "page", Value: st.Old}}
	}
	return defaultAfterArgs("Page", st)
}

// fileAfterArgs shapes after-hook arguments for file actions.
func fileAfterArgs(action string, st ModelState) Args {
	switch action {
	case "create":
		return Args{{Name: "file", Value: st.New}}
	case "delete":
		return Args{{Name: "status", Value: st.New}, {Name: "file", Value: st.Old}}
	}
	return defaultAfterArgs("File", st)
}

// userAfterArgs shapes after-hook arguments for user actions.
func userAfterArgs(action string, st ModelState) Args {
	switch action {
	case "create":
		return Args{{Name: "user", Value: st.New}}
	case "delete":
		return Args{{Name: "status", Value: st.New}, {Name: "user", Value: st.Old}}
	}
	return defaultAfterArgs("User", st)
}
