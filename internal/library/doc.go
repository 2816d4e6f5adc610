// Package library runs the video library as a whole: it registers folders,
// keeps them synced, brings them back when their volume returns and keeps a
// live watcher on every active folder.
//
// A Library is started once and stopped on shutdown:
//
//	lib := library.New(db, volume.NewSystem(), library.Config{
//	    ReconnectInterval: 30 * time.Second,
//	    SyncOnStart:       true,
//	    Watch:             true,
//	})
//	lib.SetNotifier(bus)
//	lib.Start(ctx)
//	defer lib.Stop()
package library
