package cooker

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path"
	"path/filepath"

	"github.com/spaghettifunk/kiln/pipeline/core"
	"github.com/spaghettifunk/kiln/pipeline/descriptor"
	"github.com/spaghettifunk/kiln/pipeline/index"
	"github.com/spaghettifunk/kiln/pipeline/metadata"
	"github.com/spaghettifunk/kiln/pipeline/platform"
	"github.com/spaghettifunk/kiln/pipeline/restable"
)

// cookedGeometry carries a geometry asset together with the table slots
// its LOD streams were assigned by the fresh builder.
type cookedGeometry struct {
	asset *metadata.ImportedAsset
	refs  []descriptor.MeshBufferRef
}

// cookMount cooks one mount point's batch: resource tables are merged and
// written first, then every descriptor, and the index only after all of
// them, since its records hash the bytes just written.
func (c *Cooker) cookMount(ctx context.Context, mount string, batch []*metadata.ImportedAsset) error {
	mountDir := filepath.Join(c.outputRoot, mount)

	doc, found, err := c.loadPriorDocument(ctx, filepath.Join(mountDir, index.FileName))
	if err != nil {
		return err
	}
	if found && doc.ContentVersion != c.contentVersion {
		return fmt.Errorf("prior index has content version %d, this build cooks version %d: %w",
			doc.ContentVersion, c.contentVersion, ErrContentVersionMismatch)
	}
	if found {
		core.LogDebug("mount %s: merging against prior index with %d assets", mount, len(doc.Assets))
	} else {
		core.LogDebug("mount %s: first build", mount)
	}

	priorBuffers, err := c.loadTablePair(ctx, mountDir, doc, index.FileKindBufferTable, index.FileKindBufferData)
	if err != nil {
		return err
	}
	priorTextures, err := c.loadTablePair(ctx, mountDir, doc, index.FileKindTextureTable, index.FileKindTextureData)
	if err != nil {
		return err
	}

	buffers := restable.NewBufferBuilder()
	textures := restable.NewTextureBuilder()
	var geometries []cookedGeometry
	var materials []*metadata.ImportedAsset
	localTextureSlots := map[metadata.AssetKey]uint32{}

	for _, asset := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch asset.Type {
		case metadata.AssetTypeGeometry:
			cooked := cookedGeometry{asset: asset}
			for _, lod := range asset.Geometry.LODs {
				vertexSlot, err := buffers.AddVertices(lod.Vertices)
				if err != nil {
					return fmt.Errorf("geometry %s: %w", asset.VirtualPath, err)
				}
				indexSlot, err := buffers.AddIndices(lod.Indices)
				if err != nil {
					return fmt.Errorf("geometry %s: %w", asset.VirtualPath, err)
				}
				cooked.refs = append(cooked.refs, descriptor.MeshBufferRef{
					VertexSlot: vertexSlot,
					IndexSlot:  indexSlot,
				})
			}
			geometries = append(geometries, cooked)
		case metadata.AssetTypeMaterial:
			materials = append(materials, asset)
		case metadata.AssetTypeTexture:
			slot, err := textures.AddTexture(asset.Texture)
			if err != nil {
				return fmt.Errorf("texture %s: %w", asset.VirtualPath, err)
			}
			localTextureSlots[asset.Key] = slot
		default:
			panic(fmt.Sprintf("cooker: imported asset %s has unhandled type %d", asset.VirtualPath, asset.Type))
		}
	}

	bufferMerge, err := restable.MergeBufferTables(priorBuffers, buffers.Build())
	if err != nil {
		return err
	}
	textureMerge, err := restable.MergeTextureTables(priorTextures, textures.Build())
	if err != nil {
		return err
	}
	textureSlots := make(map[metadata.AssetKey]uint32, len(localTextureSlots))
	for key, local := range localTextureSlots {
		textureSlots[key] = textureMerge.FinalSlot(local)
	}

	var files []index.FileRecord
	if len(bufferMerge.Table) > restable.BufferEntrySize {
		files, err = c.writeTablePair(ctx, mountDir, files, index.FileKindBufferTable, index.FileKindBufferData, bufferMerge)
		if err != nil {
			return err
		}
	}
	if len(textureMerge.Table) > restable.TextureEntrySize {
		files, err = c.writeTablePair(ctx, mountDir, files, index.FileKindTextureTable, index.FileKindTextureData, textureMerge)
		if err != nil {
			return err
		}
	}

	var entries []index.AssetEntry
	for _, cooked := range geometries {
		if err := ctx.Err(); err != nil {
			return err
		}
		blob, err := descriptor.EncodeGeometry(cooked.asset.Geometry, remapRefs(cooked.refs, bufferMerge))
		if err != nil {
			return fmt.Errorf("geometry %s: %w", cooked.asset.VirtualPath, err)
		}
		entry, err := c.writeDescriptor(ctx, mountDir, mount, cooked.asset, descriptor.GeometryFileExtension, blob)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	for _, asset := range materials {
		if err := ctx.Err(); err != nil {
			return err
		}
		blob, err := descriptor.EncodeMaterial(asset.Material, textureSlots)
		if err != nil {
			return fmt.Errorf("material %s: %w", asset.VirtualPath, err)
		}
		entry, err := c.writeDescriptor(ctx, mountDir, mount, asset, descriptor.MaterialFileExtension, blob)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	for _, asset := range batch {
		if asset.Type != metadata.AssetTypeTexture {
			continue
		}
		// Textures live in the texture table, not in a descriptor file;
		// their entry records the payload itself.
		entries = append(entries, index.AssetEntry{
			Key:         asset.Key,
			VirtualPath: asset.VirtualPath,
			Type:        metadata.AssetTypeTexture,
			Size:        uint64(len(asset.Texture.Data)),
			Hash:        sha256.Sum256(asset.Texture.Data),
		})
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	merged := mergeDocument(doc, c.contentVersion, entries, files)
	blob, err := index.Write(merged)
	if err != nil {
		return err
	}
	if err := c.fs.WriteAllBytes(ctx, filepath.Join(mountDir, index.FileName), blob); err != nil {
		return err
	}

	core.LogInfo("cooked mount %s: %d geometries, %d materials, %d textures; index holds %d assets",
		mount, len(geometries), len(materials), len(localTextureSlots), len(merged.Assets))
	return nil
}

func (c *Cooker) loadPriorDocument(ctx context.Context, indexPath string) (*index.Document, bool, error) {
	data, err := c.fs.ReadAllBytes(ctx, indexPath)
	if err != nil {
		if platform.IsNotFound(err) {
			return &index.Document{}, false, nil
		}
		return nil, false, err
	}
	doc, err := index.Read(data)
	if err != nil {
		return nil, false, fmt.Errorf("prior index %s: %w", indexPath, err)
	}
	return doc, true, nil
}

// loadTablePair reads the recorded table and data files of one resource
// table, verifying each against its recorded size and hash. Kinds the
// document does not record load as empty, the first build state.
func (c *Cooker) loadTablePair(ctx context.Context, mountDir string, doc *index.Document, tableKind, dataKind index.FileKind) (restable.TablePair, error) {
	var pair restable.TablePair
	var err error
	if pair.Table, err = c.loadRecordedFile(ctx, mountDir, doc.FileByKind(tableKind)); err != nil {
		return pair, err
	}
	if pair.Data, err = c.loadRecordedFile(ctx, mountDir, doc.FileByKind(dataKind)); err != nil {
		return pair, err
	}
	return pair, nil
}

func (c *Cooker) loadRecordedFile(ctx context.Context, mountDir string, rec *index.FileRecord) ([]byte, error) {
	if rec == nil {
		return nil, nil
	}
	data, err := c.fs.ReadAllBytes(ctx, filepath.Join(mountDir, rec.Path))
	if err != nil {
		if platform.IsNotFound(err) {
			return nil, fmt.Errorf("%s is recorded in the index but missing: %w", rec.Path, ErrCorruptContainer)
		}
		return nil, err
	}
	if uint64(len(data)) != rec.Size || sha256.Sum256(data) != rec.Hash {
		return nil, fmt.Errorf("%s does not match its recorded hash: %w", rec.Path, ErrCorruptContainer)
	}
	return data, nil
}

// writeTablePair writes a merged table and data pair and appends their
// records. Both files are written only here, after the merge computation
// has fully succeeded, so they can never disagree with each other.
func (c *Cooker) writeTablePair(ctx context.Context, mountDir string, files []index.FileRecord, tableKind, dataKind index.FileKind, merged *restable.MergeResult) ([]index.FileRecord, error) {
	for _, part := range []struct {
		kind index.FileKind
		blob []byte
	}{
		{tableKind, merged.Table},
		{dataKind, merged.Data},
	} {
		size, hash, err := c.writeContainerFile(ctx, mountDir, part.kind.String(), part.blob)
		if err != nil {
			return nil, err
		}
		files = append(files, index.FileRecord{
			Kind: part.kind,
			Path: part.kind.String(),
			Size: size,
			Hash: hash,
		})
	}
	return files, nil
}

func (c *Cooker) writeDescriptor(ctx context.Context, mountDir, mount string, asset *metadata.ImportedAsset, extension string, blob []byte) (index.AssetEntry, error) {
	relPath := descriptorPath(mount, asset.VirtualPath, extension)
	size, hash, err := c.writeContainerFile(ctx, mountDir, relPath, blob)
	if err != nil {
		return index.AssetEntry{}, err
	}
	core.LogDebug("wrote %s (%d bytes) for %s", relPath, size, asset.VirtualPath)
	return index.AssetEntry{
		Key:         asset.Key,
		Path:        relPath,
		VirtualPath: asset.VirtualPath,
		Type:        asset.Type,
		Size:        size,
		Hash:        hash,
	}, nil
}

// writeContainerFile writes one cooked file and re-reads it to compute
// the size and hash its record will carry, so a record can only ever
// describe bytes that made it to disk.
func (c *Cooker) writeContainerFile(ctx context.Context, mountDir, relPath string, blob []byte) (uint64, [32]byte, error) {
	fullPath := filepath.Join(mountDir, filepath.FromSlash(relPath))
	if err := c.fs.WriteAllBytes(ctx, fullPath, blob); err != nil {
		return 0, [32]byte{}, err
	}
	written, err := c.fs.ReadAllBytes(ctx, fullPath)
	if err != nil {
		return 0, [32]byte{}, err
	}
	return uint64(len(written)), sha256.Sum256(written), nil
}

// descriptorPath maps a source virtual path to its descriptor file path
// relative to the mount root: the mount segment is dropped and the source
// extension replaced with the cooked one.
func descriptorPath(mount, virtualPath, extension string) string {
	rel := virtualPath[len(mount)+1:]
	return rel[:len(rel)-len(path.Ext(rel))] + extension
}

func remapRefs(refs []descriptor.MeshBufferRef, merged *restable.MergeResult) []descriptor.MeshBufferRef {
	out := make([]descriptor.MeshBufferRef, len(refs))
	for i, ref := range refs {
		out[i] = descriptor.MeshBufferRef{
			VertexSlot: merged.FinalSlot(ref.VertexSlot),
			IndexSlot:  merged.FinalSlot(ref.IndexSlot),
		}
	}
	return out
}

// mergeDocument upserts freshly cooked entries and file records into the
// prior document: assets replace by key, files by path, everything else
// carries over untouched. Pure; the inputs are not modified.
func mergeDocument(prior *index.Document, contentVersion uint16, entries []index.AssetEntry, files []index.FileRecord) *index.Document {
	merged := &index.Document{
		ContentVersion: contentVersion,
		Assets:         append([]index.AssetEntry(nil), prior.Assets...),
		Files:          append([]index.FileRecord(nil), prior.Files...),
	}
	for _, entry := range entries {
		if existing := merged.AssetByKey(entry.Key); existing != nil {
			*existing = entry
			continue
		}
		merged.Assets = append(merged.Assets, entry)
	}
	for _, file := range files {
		replaced := false
		for i := range merged.Files {
			if merged.Files[i].Path == file.Path {
				merged.Files[i] = file
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Files = append(merged.Files, file)
		}
	}
	return merged
}
