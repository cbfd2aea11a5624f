package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nguyentantai21042004/transcript-flow/internal/index"
	"github.com/nguyentantai21042004/transcript-flow/internal/segment"
)

var transcriptExtensions = []string{".vtt", ".srt"}

type implResolver struct {
	entries        []Entry
	videosDir      string
	transcriptsDir string
}

// Load reads a manifest file (a JSON array of entries).
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	for i, e := range entries {
		if e.VideoPath == "" {
			return nil, fmt.Errorf("manifest entry %d has no video_path", i)
		}
	}

	return entries, nil
}

// New creates a Resolver over loaded manifest entries and the media roots.
func New(entries []Entry, videosDir, transcriptsDir string) Resolver {
	return &implResolver{
		entries:        entries,
		videosDir:      videosDir,
		transcriptsDir: transcriptsDir,
	}
}

func (r *implResolver) Entries() []Entry {
	return r.entries
}

func (r *implResolver) EntryFor(video string) (Entry, error) {
	want := strings.ToLower(filepath.Base(video))
	for _, e := range r.entries {
		if strings.ToLower(filepath.Base(e.VideoPath)) == want {
			return e, nil
		}
	}
	return Entry{}, &MetadataNotFoundError{Video: video}
}

// LocateTranscript resolves the entry's transcript to a file on disk. The
// declared transcript_path wins when it exists (matched case-insensitively
// within its directory); otherwise the transcripts root is searched for
// files sharing the video's stem, newest modification time first.
func (r *implResolver) LocateTranscript(entry Entry) (string, error) {
	video := filepath.Base(entry.VideoPath)

	if entry.TranscriptPath != "" {
		path := entry.TranscriptPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.transcriptsDir, path)
		}
		if found := matchInDir(filepath.Dir(path), filepath.Base(path)); found != "" {
			return found, nil
		}
	}

	if found := r.searchByStem(video); found != "" {
		return found, nil
	}

	return "", &TranscriptNotFoundError{Video: video}
}

// matchInDir returns the path of a directory entry equal to name under
// case-insensitive comparison, or "".
func matchInDir(dir, name string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	want := strings.ToLower(name)
	for _, e := range entries {
		if !e.IsDir() && strings.ToLower(e.Name()) == want {
			return filepath.Join(dir, e.Name())
		}
	}
	return ""
}

// searchByStem finds caption files in the transcripts root whose name starts
// with the video's stem, preferring the most recently modified.
func (r *implResolver) searchByStem(video string) string {
	stem := strings.ToLower(strings.TrimSuffix(video, filepath.Ext(video)))

	entries, err := os.ReadDir(r.transcriptsDir)
	if err != nil {
		return ""
	}

	var best string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(e.Name())
		ext := filepath.Ext(name)
		if !isTranscriptExt(ext) {
			continue
		}
		if !strings.HasPrefix(strings.TrimSuffix(name, ext), stem) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().UnixNano() > bestMod {
			best = filepath.Join(r.transcriptsDir, e.Name())
			bestMod = info.ModTime().UnixNano()
		}
	}
	return best
}

func isTranscriptExt(ext string) bool {
	for _, e := range transcriptExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func (r *implResolver) Attach(entry Entry, segments []segment.Segment) []index.Record {
	records := make([]index.Record, 0, len(segments))
	for _, seg := range segments {
		records = append(records, index.Record{
			SegmentID:     seg.ID,
			VideoID:       seg.VideoID,
			VideoPath:     entry.VideoPath,
			Title:         entry.Title,
			Description:   entry.Description,
			Text:          seg.Text,
			Start:         seg.Start,
			End:           seg.End,
			SequenceIndex: seg.SequenceIndex,
		})
	}
	return records
}
