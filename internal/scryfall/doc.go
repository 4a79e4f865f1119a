// Package scryfall is the card metadata provider backed by the Scryfall API.
//
// # Endpoints
//
//   - GET /cards/arena/{id}: lookup by Arena id (game id first, then print id)
//   - GET /cards/named?fuzzy=: lookup by name, optionally narrowed by set
//   - GET /cards/search?q=oracleid:{id}&unique=prints&order=released: every
//     print of a card, followed through has_more/next_page for at most
//     MaxPrintPages pages
//
// A 404 is a valid negative answer: the lookup reports found=false and a nil
// error. Any other non-2xx status, transport failure or undecodable body is
// an error.
//
// # Request Handling
//
// All requests:
//   - wait on one shared rate.Limiter (100ms between starts by default)
//   - run through a gobreaker circuit breaker that opens after five
//     consecutive failures; while open, calls fail fast with ErrCircuitOpen
//   - set Accept and User-Agent headers
//   - record outcome and latency in the metrics package
//
// # Normalization
//
// Card.Metadata maps a Scryfall card into card.Metadata. The image is
// image_uris.normal, falling back to the first face for multi-faced cards.
package scryfall
