package repositories

import "context"

// SyncPhotoSet reconciles a user's stored photo set with the desired set of
// asset hashes: members only in storage are removed, members only in the
// desired set are inserted, and unchanged members are left untouched. Run it
// inside a unit of work. Applying the same desired set twice issues no writes
// on the second application.
func SyncPhotoSet(ctx context.Context, photos PhotoStore, userID int64, desired []string) error {
	current, err := photos.ListHashes(ctx, userID)
	if err != nil {
		return err
	}

	currentSet := make(map[string]struct{}, len(current))
	for _, hash := range current {
		currentSet[hash] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, hash := range desired {
		desiredSet[hash] = struct{}{}
	}

	for _, hash := range current {
		if _, keep := desiredSet[hash]; !keep {
			if err := photos.Remove(ctx, userID, hash); err != nil {
				return err
			}
		}
	}

	for _, hash := range desired {
		if _, have := currentSet[hash]; !have {
			if err := photos.Add(ctx, userID, hash); err != nil {
				return err
			}
		}
	}

	return nil
}
