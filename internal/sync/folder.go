package sync

import (
	"fmt"

	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
	"github.com/kafky-yu/eagle-pics-server/internal/store"
)

// folderNode is one entry of the flattened folder arena. Parent/child links
// are id references, so traversal never recurses.
type folderNode struct {
	ID           string
	PID          string
	Name         string
	Description  string
	Password     string
	PasswordTips string
	Children     []string
}

// flattenFolders walks the nested Eagle folder tree iteratively and returns
// an arena indexed by id plus the encounter order. External data should
// never contain cycles, but a visited check makes sure a malformed tree
// cannot loop the walk.
func flattenFolders(roots []eagle.FolderNode) (map[string]*folderNode, []string) {
	arena := make(map[string]*folderNode)
	var order []string

	type frame struct {
		node eagle.FolderNode
		pid  string
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: roots[i]})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := arena[f.node.ID]; seen {
			continue
		}

		n := &folderNode{
			ID:           f.node.ID,
			PID:          f.pid,
			Name:         f.node.Name,
			Description:  f.node.Description,
			Password:     f.node.Password,
			PasswordTips: f.node.PasswordTips,
		}
		for _, c := range f.node.Children {
			n.Children = append(n.Children, c.ID)
		}
		arena[f.node.ID] = n
		order = append(order, f.node.ID)

		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], pid: f.node.ID})
		}
	}
	return arena, order
}

// syncFolders reconciles the mirrored folder table with the library's
// current tree. Failure to read the tree itself is fatal for the pass;
// per-folder failures are logged and skipped.
func (s *Syncer) syncFolders(libraryPath string) error {
	info, err := eagle.ReadLibraryMetadata(eagle.LibraryMetadataPath(libraryPath))
	if err != nil {
		return fmt.Errorf("read folder tree: %w", err)
	}

	pwdFolderShow := false
	if settings, err := s.store.Settings(); err != nil {
		s.logger.Warn("read settings", "error", err)
	} else if settings != nil {
		pwdFolderShow = settings.PwdFolder
	}

	arena, order := flattenFolders(info.Folders)

	count := 0
	for _, id := range order {
		n := arena[id]
		count++

		show := true
		if n.Password != "" {
			show = pwdFolderShow
		}
		up := store.FolderUpsert{
			ID:           n.ID,
			PID:          n.PID,
			Name:         n.Name,
			Description:  n.Description,
			Password:     n.Password,
			PasswordTips: n.PasswordTips,
			Show:         show,
		}
		if err := s.store.UpsertFolder(up); err != nil {
			s.logger.Error("upsert folder", "id", n.ID, "error", err)
			s.hub.Publish(StreamSync, Event{
				Status: StatusError, Type: TypeFolder,
				Data: FolderRef{ID: n.ID, Name: n.Name}, Count: count, Message: err.Error(),
			})
			continue
		}

		s.hub.Publish(StreamSync, Event{
			Status: StatusOK, Type: TypeFolder,
			Data: FolderRef{ID: n.ID, Name: n.Name}, Count: count,
		})
	}

	if err := s.store.SetPwdFolderShow(pwdFolderShow); err != nil {
		s.logger.Error("set pwd folder show", "error", err)
	}

	s.deleteStaleFolders(arena, libraryPath)
	s.computeFolderCounts(arena, libraryPath)

	s.hub.Publish(StreamSync, Event{Status: StatusCompleted, Type: TypeFolder, Count: count})
	return nil
}

// deleteStaleFolders removes mirrored folders the external tree no longer
// contains. Only folders with zero image links are deleted: a folder still
// referenced by images survives a partial external response, and folders
// holding another library's images are never candidates.
func (s *Syncer) deleteStaleFolders(arena map[string]*folderNode, libraryPath string) {
	known, err := s.store.ListFolders()
	if err != nil {
		s.logger.Error("list folders", "error", err)
		return
	}

	var stale []string
	for _, f := range known {
		if _, ok := arena[f.ID]; !ok {
			stale = append(stale, f.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	deleted, err := s.store.DeleteFoldersUnreferenced(stale)
	if err != nil {
		s.logger.Error("delete stale folders", "library", libraryPath, "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("deleted stale folders", "count", deleted)
	}
}

// computeFolderCounts fills in each folder's count bottom-up: direct images
// plus the sum of the children's counts. The worklist is seeded with every
// node that has no children; a parent is enqueued only once all its children
// are processed, which guarantees termination. Nodes left unprocessed after
// the worklist drains (possible only for disconnected or cyclic input) fall
// back to their direct count.
func (s *Syncer) computeFolderCounts(arena map[string]*folderNode, libraryPath string) {
	counts := make(map[string]int64, len(arena))
	processed := make(map[string]bool, len(arena))

	// Parent index over the arena.
	parents := make(map[string]string, len(arena))
	for id, n := range arena {
		for _, c := range n.Children {
			parents[c] = id
		}
	}

	var queue []string
	for id, n := range arena {
		if len(n.Children) == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if processed[id] {
			continue
		}

		n := arena[id]
		direct, err := s.store.DirectImageCount(id, libraryPath)
		if err != nil {
			s.logger.Error("count folder images", "id", id, "error", err)
			direct = 0
		}

		total := direct
		for _, c := range n.Children {
			total += counts[c]
		}
		counts[id] = total
		processed[id] = true

		if err := s.store.SetFolderCount(id, total); err != nil {
			s.logger.Error("store folder count", "id", id, "error", err)
		}

		pid, ok := parents[id]
		if !ok || processed[pid] {
			continue
		}
		ready := true
		for _, sib := range arena[pid].Children {
			if !processed[sib] {
				ready = false
				break
			}
		}
		if ready {
			queue = append(queue, pid)
		}
	}

	for id := range arena {
		if processed[id] {
			continue
		}
		s.logger.Warn("folder count worklist left node unprocessed", "id", id)
		direct, err := s.store.DirectImageCount(id, libraryPath)
		if err != nil {
			continue
		}
		if err := s.store.SetFolderCount(id, direct); err != nil {
			s.logger.Error("store folder count", "id", id, "error", err)
		}
	}
}
