/*
Package annotate posts rollout and rollback events to an external
observability timeline.

Every sink is strictly best-effort: the control loops go through BestEffort,
which logs and swallows failures. The sink being down, slow or misconfigured
can therefore never change a rollout or rollback decision.
*/
package annotate
