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

package manifestdb

import "github.com/space-wizards/robust-cdn/internal/sqlitedb"

var migrations = []sqlitedb.Migration{
	{
		Name: "0001_initial",
		SQL: `
CREATE TABLE Fork (
	Id                 INTEGER PRIMARY KEY,
	Name               TEXT NOT NULL UNIQUE,
	ServerManifestCache BLOB
);

CREATE TABLE ForkVersion (
	Id              INTEGER PRIMARY KEY,
	ForkId          INTEGER NOT NULL REFERENCES Fork(Id) ON DELETE CASCADE,
	VersionName     TEXT NOT NULL,
	PublishedTime   TEXT NOT NULL,
	EngineVersion   TEXT NOT NULL,
	ClientZipName   TEXT NOT NULL,
	ClientZipSha256 BLOB NOT NULL,
	Available       INTEGER NOT NULL DEFAULT 0,
	UNIQUE(ForkId, VersionName)
);

CREATE TABLE ForkVersionServerBuild (
	Id         INTEGER PRIMARY KEY,
	VersionId  INTEGER NOT NULL REFERENCES ForkVersion(Id) ON DELETE CASCADE,
	Platform   TEXT NOT NULL,
	FileName   TEXT NOT NULL,
	Sha256     BLOB NOT NULL,
	FileSize   INTEGER,
	UNIQUE(VersionId, Platform),
	UNIQUE(VersionId, FileName)
);

CREATE TABLE PublishInProgress (
	Id            INTEGER PRIMARY KEY,
	ForkId        INTEGER NOT NULL REFERENCES Fork(Id) ON DELETE CASCADE,
	VersionName   TEXT NOT NULL,
	StartTime     TEXT NOT NULL,
	EngineVersion TEXT NOT NULL,
	UNIQUE(ForkId, VersionName)
);
`,
	},
}
