// Package mixfs provides a layered, read-mostly virtual filesystem over game
// asset directories and MIX containers, built on the AbsFs filesystem
// abstraction.
//
// # Overview
//
// A VFS holds an ordered list of search roots. Each root is a directory of
// the base filesystem together with the MIX archives found directly inside
// it. Opening a name walks the roots in order; within a root the loose file
// wins over any packed copy, and the first hit is returned. Nothing is
// merged across roots.
//
// Every storage access goes through an injected absfs.FileSystem, so the VFS
// can sit on the OS, on an in-memory filesystem in tests, or on any other
// AbsFs implementation.
//
// # Supported Containers
//
//   - Tiberian Dawn: a bare count/size header followed by the index
//   - Red Alert: a flags word, optionally with a SHA-1 checksum trailer and
//     an encrypted index
//   - Tiberian Sun: the Red Alert layout with CRC-32 ids and 16-byte aligned
//     entries
//
// Encrypted Red Alert indices are protected with Blowfish. The Blowfish key
// is stored in the header as an 80-byte blob wrapped with a fixed public key;
// UnwrapKey recovers it with fixed-width big integer arithmetic.
//
// # Basic Usage
//
//	base := osfs.New()
//
//	vfs, err := mixfs.New(base, &mixfs.Config{CaseFold: true})
//	if err != nil {
//	    panic(err)
//	}
//	defer vfs.Close()
//
//	// The directory and every .mix archive inside it form one root
//	if err := vfs.Add("/opt/redalert"); err != nil {
//	    panic(err)
//	}
//
//	f, err := vfs.Open("rules.ini")
//	if err != nil {
//	    panic(err)
//	}
//	defer f.Close()
//
//	for {
//	    line, err := f.ReadLine()
//	    if err == io.EOF {
//	        break
//	    }
//	    fmt.Println(line)
//	}
//
// # Lookup Rules
//
// Names inside MIX archives are not stored; only a 32-bit id derived from
// the upper-cased base name is. IDOf computes the classic id and TSIDOf the
// Tiberian Sun one. All archives of a VFS share one Catalog keyed by id, and
// when two archives carry the same id the one loaded last wins. An archive
// that packs a name still answers for its root when a later archive shadows
// the id, and the later copy is what gets read. Removing a root replays the
// remaining archives in load order, so earlier entries become visible again.
//
// # Handles
//
// Open returns a *File that owns one handle of the serving archive. Files
// opened from a MIX archive share the container's descriptor but keep their
// own position, and reads stop at the end of the entry. Archives are
// read-only; OpenWrite only targets directory roots. Reading from a
// write-only file, writing to a read-only one, or using a closed file is a
// UsageError and is reported at once.
//
// # AbsFs View
//
// VFS.FileSystem wraps the resolver in an absfs.FileSystem, so code written
// against AbsFs can read packed assets directly. Reads and Stat go through
// the search roots, and every change to the tree is applied to the first
// directory root.
//
// # Errors
//
//   - ErrNotFound: no root has the name
//   - UsageError: the call can never succeed on this handle
//   - IOError: the base filesystem failed
//   - FormatError: a container header or index is inconsistent
//   - CryptoError: the embedded public key failed its self-check
//
// A container that fails to load is skipped without affecting the others.
package mixfs
