/*
Package config loads Shepherd's environment configuration and rollout plans.

Configuration is environment-driven. Load collects every missing required
variable and reports them in a single enumerated diagnostic; the controller
refuses to start with partial configuration.

Rollout parameters (the percentage ladder, per-step check budget, failure
threshold and retry budget) come from an optional YAML plan file and fall back
to the standard ladder [5, 20, 50, 100].
*/
package config
