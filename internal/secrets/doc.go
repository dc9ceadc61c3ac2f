// Package secrets turns the secrets input into a request map, fetches the
// requested secrets in one batch and publishes each one through an ordered
// list of processors.
//
// This package is for internal use by sm-action only.
//
// Usage:
//
//	requests, err := secrets.ParseRequests(l, lines)
//	manager := secrets.NewManager(l, client)
//	err = manager.FetchAndProcess(ctx, requests, secrets.Pipeline(ci, setEnv))
package secrets
