// Package domain holds the LetterOS entities (launch content, newsletters,
// subscribers, plans and generated variants) and the sentinel errors the
// services return.
//
// Nothing here touches storage, HTTP or other internal packages. Entities
// carry their own Validate methods; repositories and handlers share them as
// plain values.
package domain
