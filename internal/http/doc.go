// Package http provides HTTP handlers and middleware for the planner API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","member"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - POST /logout: revokes the current session token extracted from the Authorization
//     header or session cookie. Returns 204 No Content and clears the cookie.
//   - GET /members, POST /members, GET /members/{id}, PUT /members/{id},
//     DELETE /members/{id}: family member management endpoints exchanging the
//     `memberDTO` payload defined in member_handler.go. Mutations require a
//     parent account except members editing their own profile.
//   - GET /members/{id}/preferences, PUT /members/{id}/preferences,
//     DELETE /members/{id}/preferences: per-member scheduling preference
//     documents. GET /preferences/group and PUT /preferences/group manage the
//     shared family document; writing it requires a parent account.
//   - GET /events, POST /events, GET /events/{id}, PUT /events/{id},
//     DELETE /events/{id}: event management endpoints exchanging the `eventDTO`
//     payload defined in event_handler.go. Event responses include advisory
//     conflict warnings; a double-booking never blocks the write.
//   - GET /suggestions?start=&end=&max=&seed=: runs the availability engine over
//     stored events and preferences. Always responds 200 with {slots,
//     constraints}; an empty slot list is a normal payload.
//
// Every endpoint except /login sits behind the RequireSession middleware.
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
