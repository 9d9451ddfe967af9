// Package domain contains the core entities of the wordbook worker:
// the Job record with its status state machine and progress tracking,
// and the Wordbook artifact assembled from analyzed words.
package domain
