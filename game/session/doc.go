// Package session keeps running battles in memory and on disk.
//
// A Manager maps case-insensitive session ids to service.Session values.
// Ids are UUIDs unless the caller supplies one; supplied ids must be usable
// as file names.
//
// Persistence:
//
// NewManagerWithPersistence attaches a SessionPersistence. FilePersistence
// writes one JSON file per session holding the scenario id and an
// engine.Snapshot, so the board is always rebuilt from the scenario file and
// only units and turn state are stored. Files are replaced atomically.
//
// Sessions that are not in memory are loaded on Get. CleanupExpiredSessions
// only evicts from memory; the persisted copy stays until Delete.
//
// Locking:
//
// The manager's own lock guards the map. Each session carries its own lock
// for the battle it wraps, and the manager never takes a session lock while
// holding its map lock. Save requires the caller to hold the session lock.
//
// Usage:
//
//	fp, err := session.NewFilePersistence("sessions", configs)
//	if err != nil {
//		return err
//	}
//	manager := session.NewManagerWithPersistence(fp, log)
//
//	sess, err := manager.Create("", "corridor", cfg)
//	if err != nil {
//		return err
//	}
//	sess.Lock()
//	err = sess.Battle.StartNewRound()
//	if err == nil {
//		err = manager.Save(sess.ID)
//	}
//	sess.Unlock()
package session
