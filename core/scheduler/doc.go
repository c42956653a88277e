// Package scheduler orders evacuation requests by a priority frozen at
// submission time and drives them through PENDING, IN_PROGRESS and COMPLETED.
//
// The priority of a request is computed once from the zone state seen at
// submission:
//
//	risk + min(population/50, 50) - 20*teams - (10 if the zone holds stock)
//
// clamped at zero. Later zone changes never reorder queued requests, so a
// request cannot be starved by newer ones created after it. Requests with the
// same priority are served in submission order.
//
// Process is the only operation that changes zone population on behalf of an
// evacuation and completes each request at most once.
package scheduler
