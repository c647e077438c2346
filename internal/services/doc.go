// Package services defines the [SourceService] and [TargetService] interfaces and implements them for
// Monarch and Firefly III.
//
// # Source Service
//
// [MonarchService] posts GraphQL operations to the Monarch API and returns each response's `data`
// member as raw JSON. The session token is sent as `Authorization: Token <token>`.
//
// [StubSource] replaces any subset of the document methods with JSON files, which is how the CLI's
// `--monarch-<kind>` flags work and how runs are reproduced offline.
//
// # Target Service
//
// [FireflyService] speaks the Firefly III JSON:API dialect:
//   - Single resources are wrapped in `{"data": {"id","type","attributes"}}`
//   - Collections carry `meta.pagination`; [FireflyService.List] walks every page
//   - Requests are authorized with a personal access token via [oauth2.StaticTokenSource]
//   - Every request waits on a shared [rate.Limiter]
//
// [APIService] issues raw authorized requests for debugging.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrAPIRequest] : non-2xx response or undecodable body, with the service message
//   - [shared.ErrAuthFailed] : 401/403, wrapped alongside ErrAPIRequest
//   - [shared.ErrRecordNotFound] : 404, wrapped alongside ErrAPIRequest
//   - [shared.ErrServiceUnavailable] : transport failure or 5xx
package services
