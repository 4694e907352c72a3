/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package backlog provides an ordered collection of blocked queues keyed by their reported backlog length.
//
// The collection supports extracting the item with the current maximum length. Items with equal lengths
// are extracted in ascending order of their names, so traversal order never depends on insertion order.
package backlog
