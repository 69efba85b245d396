// Package codec converts vendor SDK objects into the JSON-safe shapes that
// cross the bridge boundary, and parses outbound message content back into
// vendor types.
//
// Curated converters name exactly the fields the application layer reads.
// Reflect is a bounded fallback for configuration objects whose concrete
// type the bridge does not know.
package codec
