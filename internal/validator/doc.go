// Package validator collects configuration and hook problems into a single
// report for `dotsnapshot config validate` and `dotsnapshot hooks validate`.
//
// [ValidateConfig] checks paths, plugin selections and every hook;
// [ValidateHooks] checks hooks alone. Both return a [Result] whose issues
// carry a [Severity]. Only errors fail validation. Hook issues name the
// plugin, phase and action they were found in.
//
// A [Reporter] writes a Result as coloured text, JSON or YAML:
//
//	result := validator.ValidateHooks(cfg, registry.Names())
//	if err := validator.NewReporter(os.Stdout, validator.FormatText).Report(result); err != nil {
//		return err
//	}
//	if result.HasErrors() {
//		// exit non-zero
//	}
package validator
