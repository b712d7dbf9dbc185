package vaultsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/vaultsync/vault"
)

// Sync rescans the vault and persists what changed: posts and images the
// store has never seen are inserted unreleased, and known items whose
// content hash differs from the vault are updated in place. Release status
// is never touched. Concurrent calls are serialized.
func (a *App) Sync(ctx context.Context) (SyncResult, error) {
	if err := a.Init(ctx); err != nil {
		return SyncResult{}, err
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()

	if err := a.Scanner.Rescan(ctx); err != nil {
		return SyncResult{}, fmt.Errorf("vaultsync: rescan: %w", err)
	}
	res := SyncResult{ScannedAt: a.Scanner.LastScan()}
	now := time.Now()

	for _, img := range a.Scanner.NewImages() {
		if err := a.Store.InsertImage(ctx, Image{Name: img.Name, Data: img.Data}); err != nil {
			return res, fmt.Errorf("vaultsync: insert image %q: %w", img.Name, err)
		}
		res.NewImages = append(res.NewImages, img.Name)
	}
	for _, p := range a.Scanner.NewPosts() {
		if err := a.Store.InsertPost(ctx, BlogPost{Name: p.Name, Description: p.Description, Text: p.Body}); err != nil {
			return res, fmt.Errorf("vaultsync: insert post %q: %w", p.Name, err)
		}
		res.NewPosts = append(res.NewPosts, p.Name)
	}

	imageHashes, err := a.Store.ImageHashes(ctx)
	if err != nil {
		return res, fmt.Errorf("vaultsync: load image hashes: %w", err)
	}
	for _, img := range a.Scanner.Images() {
		stored, ok := imageHashes[img.Name]
		if !ok || stored == ContentHash(img.Data) {
			continue
		}
		if err := a.Store.UpdateImageData(ctx, img.Name, img.Data); err != nil {
			return res, fmt.Errorf("vaultsync: update image %q: %w", img.Name, err)
		}
		res.UpdatedImages = append(res.UpdatedImages, img.Name)
	}

	postHashes, err := a.Store.PostHashes(ctx)
	if err != nil {
		return res, fmt.Errorf("vaultsync: load post hashes: %w", err)
	}
	for _, p := range a.Scanner.Posts() {
		stored, ok := postHashes[p.Name]
		if !ok || stored == PostHash(p.Description, p.Body) {
			continue
		}
		if err := a.Store.UpdatePostContent(ctx, p.Name, p.Description, p.Body, now); err != nil {
			return res, fmt.Errorf("vaultsync: update post %q: %w", p.Name, err)
		}
		res.UpdatedPosts = append(res.UpdatedPosts, p.Name)
	}

	if res.Changed() {
		a.Cache.Invalidate()
	}
	a.lastSync.Store(&res)

	a.logger.Info("vault synced",
		zap.Strings("new_posts", res.NewPosts),
		zap.Strings("new_images", res.NewImages),
		zap.Strings("updated_posts", res.UpdatedPosts),
		zap.Strings("updated_images", res.UpdatedImages),
	)
	return res, nil
}

// LastSync returns the result of the most recent successful Sync, or nil.
func (a *App) LastSync() *SyncResult {
	return a.lastSync.Load()
}

// watchVault starts a vault watcher that runs Sync after each settled burst
// of changes. Sync failures are logged and the watch continues.
func (a *App) watchVault(ctx context.Context) (stop func(), err error) {
	if a.vaultFS != nil {
		return nil, errors.New("vaultsync: watching requires a vault on the host filesystem")
	}
	w, err := vault.NewWatcher(a.Config.VaultPath, a.Config.WatchDebounce, a.logger.Named("watch"))
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case _, ok := <-w.Changes():
				if !ok {
					return
				}
				if _, err := a.Sync(ctx); err != nil {
					a.logger.Error("watch sync failed", zap.Error(err))
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				a.logger.Warn("vault watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		if err := w.Stop(); err != nil {
			a.logger.Warn("stop vault watcher", zap.Error(err))
		}
		<-done
	}, nil
}
