// Package events defines the pipeline events emitted on the event bus.
//
// Available event types:
//   - DistrictEvent: a district moved through a pipeline stage
//   - RunEvent: a run over all districts finished
package events
