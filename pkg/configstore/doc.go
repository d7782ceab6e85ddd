/*
Package configstore abstracts the deployment configuration the controller
mutates: the canary traffic percentage, the canary enable flag, and the
deployed image tag.

The production implementation edits a deployment env file in place with
atomic-rename writes. Tests use the in-memory MemStore. Keeping the state
behind the Store interface lets the rollout state machine run without real
infrastructure.
*/
package configstore
