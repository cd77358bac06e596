// Package classifier provides the sentiment classifier implementations: a
// local VADER analyzer and a client for a hosted transformer model. Both are
// pretrained collaborators; this package only maps their output onto the
// domain label enum.
package classifier
