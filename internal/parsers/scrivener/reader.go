package scrivener

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/custodia-labs/quill/internal/core/domain"
	"github.com/custodia-labs/quill/internal/logger"
	"github.com/custodia-labs/quill/internal/parsers"
)

// reader resolves binder items against the package's Files/Data tree.
type reader struct {
	root      string
	templates map[string]domain.ReferenceKind
	proj      *project
}

// chapters maps the draft folder. Folders become chapters, loose text
// documents become single-scene chapters.
func (r *reader) chapters(ctx context.Context, draft *binderItem) ([]domain.ParsedChapter, error) {
	var chapters []domain.ParsedChapter
	for i := range draft.Children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := &draft.Children[i]

		switch item.Type {
		case typeFolder:
			ch := domain.ParsedChapter{
				Title:    titleOr(item.Title, "Chapter", len(chapters)),
				SourceID: domain.SourceIDOf(item.id()),
			}
			var texts []*binderItem
			collectTexts(item.Children, &texts)
			for _, t := range texts {
				sc, err := r.scene(t, len(ch.Scenes))
				if err != nil {
					return nil, err
				}
				ch.Scenes = append(ch.Scenes, sc)
			}
			chapters = append(chapters, ch)

		case typeText:
			sc, err := r.scene(item, 0)
			if err != nil {
				return nil, err
			}
			ch := domain.ParsedChapter{
				Title:  sc.Title,
				Scenes: []domain.ParsedScene{sc},
			}
			if item.id() != "" {
				ch.SourceID = domain.SourceIDOf(item.id() + "#chapter")
			}
			chapters = append(chapters, ch)

		default:
			logger.Debug("scrivener: skipping draft item %q of type %s", item.Title, item.Type)
		}
	}
	return chapters, nil
}

// collectTexts flattens nested folders and sub-documents in binder order.
func collectTexts(items []binderItem, out *[]*binderItem) {
	for i := range items {
		item := &items[i]
		if item.Type == typeText {
			*out = append(*out, item)
		}
		collectTexts(item.Children, out)
	}
}

// scene builds a scene from a text document. The synopsis is the sole
// beat. A single-sentence manuscript adds a second beat, unless it repeats
// the synopsis, in which case the two collapse into one.
func (r *reader) scene(item *binderItem, index int) (domain.ParsedScene, error) {
	sc := domain.ParsedScene{
		Title:    titleOr(item.Title, "Scene", index),
		SourceID: domain.SourceIDOf(item.id()),
	}

	synopsis, err := r.synopsis(item)
	if err != nil {
		return sc, err
	}
	sc.Synopsis = synopsis
	if synopsis != "" {
		sc.Beats = append(sc.Beats, domain.ParsedBeat{
			Content:  synopsis,
			SourceID: domain.SummarySourceID(sc.SourceID),
		})
	}

	text, err := r.content(item)
	if err != nil {
		return sc, err
	}
	if parsers.IsSingleSentence(text) {
		sentence := parsers.CollapseSpace(text)
		if sentence != parsers.CollapseSpace(synopsis) {
			beat := domain.ParsedBeat{Content: sentence}
			if sc.SourceID != nil {
				beat.SourceID = domain.SourceIDOf(*sc.SourceID + "#text")
			}
			sc.Beats = append(sc.Beats, beat)
		}
	}
	return sc, nil
}

func (r *reader) dataDir(item *binderItem) string {
	return filepath.Join(r.root, "Files", "Data", item.id())
}

func (r *reader) synopsis(item *binderItem) (string, error) {
	if item.id() == "" {
		return "", nil
	}
	path := filepath.Join(r.dataDir(item), "synopsis.txt")
	data, err := parsers.ReadFileIfExists(path)
	if err != nil || data == nil {
		return "", err
	}
	text, err := parsers.DecodeText(path, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// content returns the document text, preferring a plain content.txt over
// the RTF body.
func (r *reader) content(item *binderItem) (string, error) {
	if item.id() == "" {
		return "", nil
	}
	for _, name := range []string{"content.txt", "content.rtf"} {
		path := filepath.Join(r.dataDir(item), name)
		data, err := parsers.ReadFileIfExists(path)
		if err != nil {
			return "", err
		}
		if data == nil {
			continue
		}
		text, err := parsers.DecodeText(path, data)
		if err != nil {
			return "", err
		}
		if name == "content.rtf" {
			text = rtfToText(text)
		}
		return strings.TrimSpace(text), nil
	}
	return "", nil
}

// references scans the research folder for sheets whose template, label or
// enclosing folder names a reference kind.
func (r *reader) references(research *binderItem) ([]domain.ParsedReference, error) {
	var refs []domain.ParsedReference
	var walk func(items []binderItem, inherited domain.ReferenceKind) error
	walk = func(items []binderItem, inherited domain.ReferenceKind) error {
		for i := range items {
			item := &items[i]
			kind, ok := r.kindOf(item)
			if !ok {
				kind = inherited
			}

			if item.Type == typeText && kind != "" {
				ref, err := r.reference(item, kind)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}

			next := inherited
			if item.Type == typeFolder && ok {
				next = kind
			}
			if err := walk(item.Children, next); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(research.Children, ""); err != nil {
		return nil, err
	}
	return refs, nil
}

// kindOf checks the icon (template), label and title of an item.
func (r *reader) kindOf(item *binderItem) (domain.ReferenceKind, bool) {
	candidates := []string{item.MetaData.IconFileName, r.proj.labelName(item.MetaData.LabelID)}
	if item.Type == typeFolder {
		candidates = append(candidates, item.Title)
	}
	for _, c := range candidates {
		if kind, ok := r.templates[strings.ToLower(strings.TrimSpace(c))]; ok {
			return kind, true
		}
	}
	return "", false
}

func (r *reader) reference(item *binderItem, kind domain.ReferenceKind) (domain.ParsedReference, error) {
	ref := domain.ParsedReference{
		Kind:       kind,
		Name:       strings.TrimSpace(item.Title),
		Attributes: make(map[string]string),
		SourceID:   domain.SourceIDOf(item.id()),
	}
	synopsis, err := r.synopsis(item)
	if err != nil {
		return ref, err
	}
	if synopsis != "" {
		ref.Attributes["synopsis"] = synopsis
	}
	notes, err := r.content(item)
	if err != nil {
		return ref, err
	}
	if notes != "" {
		ref.Attributes["notes"] = notes
	}
	return ref, nil
}

func titleOr(title, prefix string, index int) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return prefix + " " + strconv.Itoa(index+1)
}
