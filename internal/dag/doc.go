// Package dag tracks embedding chains between project documents as a directed
// graph. A node is a (document, group) key; an edge records that the first
// embeds the second. Linking an edge that would close a cycle is refused, which
// is how the resolver breaks embedding loops such as a project embedding
// itself or two projects embedding each other.
package dag
