/*
Copyright 2026 The Robust-Cdn Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package publish

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/space-wizards/robust-cdn/internal/apierr"
	"github.com/space-wizards/robust-cdn/internal/diskpath"
	"github.com/space-wizards/robust-cdn/internal/manifestdb"
	"github.com/space-wizards/robust-cdn/internal/manifesttext"
	"github.com/space-wizards/robust-cdn/internal/urltemplate"
)

// Finalizer runs the finalization both publish entry shapes converge
// on: positioning artifacts, hashing the client zip, generating and
// injecting build.json into every server artifact, and committing
// version metadata.
type Finalizer struct {
	Manifest      *manifestdb.DB
	Disk          *diskpath.Resolver
	URLs          *urltemplate.Manager
	Log           *logrus.Entry
	TriggerIngest func(forkName string)
}

func sha256File(path string) (sum [32]byte, size int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return sum, 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return sum, 0, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, n, nil
}

// Finalize runs the common finalization described for the publish
// workflow against a version directory whose artifacts have already
// been positioned on disk and classified. A missing client artifact is
// rejected before anything else and leaves the directory alone; on any
// later failure the version directory is removed so a retried publish
// starts clean.
func (f *Finalizer) Finalize(forkID int64, forkName, versionName, engineVersion string, class Classification) error {
	if class.ClientFile == "" {
		return apierr.BadRequest("no client artifact present")
	}

	if err := f.finalizeLocked(forkID, forkName, versionName, engineVersion, class); err != nil {
		dir := f.Disk.VersionDir(forkName, versionName)
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			f.Log.WithError(rmErr).WithField("dir", dir).Warn("cleanup after failed publish also failed")
		}
		return err
	}
	return nil
}

func (f *Finalizer) finalizeLocked(forkID int64, forkName, versionName, engineVersion string, class Classification) error {
	exists, err := f.Manifest.VersionExists(forkID, versionName)
	if err != nil {
		return apierr.Internal("checking existing version", err)
	}
	if exists {
		return apierr.Conflict(fmt.Sprintf("version %q already published", versionName))
	}

	clientPath, err := f.Disk.FilePath(forkName, versionName, class.ClientFile)
	if err != nil {
		return apierr.BadRequest(err.Error())
	}
	clientSha, _, err := sha256File(clientPath)
	if err != nil {
		return apierr.Internal("hashing client artifact", err)
	}
	manifestHash, _, err := manifesttext.HashZip(clientPath)
	if err != nil {
		return apierr.Internal("hashing client manifest", err)
	}

	buildJSONData, err := GenerateBuildJSON(f.URLs, forkName, versionName, class.ClientFile, hexEncode(clientSha[:]), engineVersion, manifestHash.HexUpper())
	if err != nil {
		return apierr.Internal("generating build.json", err)
	}

	builds := make([]manifestdb.ServerBuild, 0, len(class.Servers))
	for _, sa := range class.Servers {
		path, err := f.Disk.FilePath(forkName, versionName, sa.FileName)
		if err != nil {
			return apierr.BadRequest(err.Error())
		}
		if err := InjectBuildJSON(path, buildJSONData); err != nil {
			return apierr.Internal(fmt.Sprintf("injecting build.json into %s", sa.FileName), err)
		}
		sha, size, err := sha256File(path)
		if err != nil {
			return apierr.Internal("hashing server artifact", err)
		}
		builds = append(builds, manifestdb.ServerBuild{
			Platform: sa.Platform,
			FileName: sa.FileName,
			Sha256:   sha,
			FileSize: &size,
		})
	}

	tx, err := f.Manifest.Begin()
	if err != nil {
		return apierr.Internal("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.CreateVersion(manifestdb.Version{
		ForkID:          forkID,
		Name:            versionName,
		PublishedTime:   time.Now(),
		EngineVersion:   engineVersion,
		ClientZipName:   class.ClientFile,
		ClientZipSha256: clientSha,
		ServerBuilds:    builds,
	}); err != nil {
		return apierr.Internal("inserting version", err)
	}
	if err := tx.DeleteInProgress(forkID, versionName); err != nil {
		return apierr.Internal("clearing in-progress row", err)
	}
	if err := tx.Commit(); err != nil {
		return apierr.Internal("committing version", err)
	}

	if f.TriggerIngest != nil {
		f.TriggerIngest(forkName)
	}
	return nil
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}
