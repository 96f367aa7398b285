package meta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDetectGradle(t *testing.T) {
	dir := t.TempDir()
	build := write(t, dir, "build.gradle", `
plugins { id 'java-library' }
group = 'com.acme'
dependencies {
    implementation 'com.braintribe.gm:root-model:2.0.1'
    api("com.acme:base-model:1.0")
    implementation 'com.braintribe.gm:root-model:2.0.1'
    testImplementation 'junit:junit:4.13'
}
`)
	write(t, dir, "gradle.properties", "# props\nversion=1.2\ngroup=ignored\n")
	write(t, dir, "settings.gradle", "rootProject.name = 'shop-model'\n")

	inf := Detect(dir)
	assert.Equal(t, "gradle", inf.Build)
	assert.Equal(t, "com.acme", inf.GroupID)
	assert.Equal(t, "shop-model", inf.ArtifactID)
	assert.Equal(t, "1.2", inf.Version)
	assert.Equal(t, build, inf.BuildDescriptor)
	assert.Equal(t, []string{"com.braintribe.gm:root-model", "com.acme:base-model"}, inf.Dependencies)
}

func TestDetectMaven(t *testing.T) {
	dir := t.TempDir()
	pom := write(t, dir, "pom.xml", `<project>
  <parent><groupId>org.parent</groupId><version>3.1</version></parent>
  <artifactId>orders-model</artifactId>
  <dependencies>
    <dependency><groupId>a</groupId><artifactId>b</artifactId></dependency>
    <dependency><groupId>t</groupId><artifactId>u</artifactId><scope>test</scope></dependency>
  </dependencies>
</project>`)
	write(t, dir, "build.gradle", "group = 'loses'\n")

	inf := Detect(dir)
	assert.Equal(t, "maven", inf.Build)
	assert.Equal(t, "org.parent", inf.GroupID)
	assert.Equal(t, "orders-model", inf.ArtifactID)
	assert.Equal(t, "3.1", inf.Version)
	assert.Equal(t, pom, inf.BuildDescriptor)
	assert.Equal(t, []string{"a:b"}, inf.Dependencies)
}

func TestDetectUnknown(t *testing.T) {
	dir := t.TempDir()
	inf := Detect(dir)
	assert.Empty(t, inf.Build)
	assert.Equal(t, filepath.Base(dir), inf.ArtifactID)
	assert.Equal(t, UnspecifiedVersion, inf.Version)
	assert.Equal(t, filepath.Join(dir, "build.gradle"), inf.BuildDescriptor)
}

func TestDetectGradleWithoutVersion(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "build.gradle", "plugins {}\n")

	inf := Detect(dir)
	assert.Equal(t, "gradle", inf.Build)
	assert.Equal(t, UnspecifiedVersion, inf.Version)
	assert.Equal(t, filepath.Base(dir), inf.ArtifactID)
}
