// Package models defines domain entities and persistence interfaces for stx.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): structs decoded from the StreamTube API envelope
//   - [User], [Channel], [Video], [Comment], [Notification]
//   - [LikeState], [SubscriptionState], [WatchLaterState] : toggle results
//   - [Page] : a page of list results
//   - [VideoExport] : a set of videos prepared for the formatter
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedVideo] : a cached video keyed by its StreamTube ID
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
//
// Input types ([SignupInput], [LoginInput], [CommentInput], [VideoInput]) carry validator tags shared by the CLI and the development API.
package models
