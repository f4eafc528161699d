package hierarchy

import (
	"testing"

	"rental-registry/internal/apperror"
	"rental-registry/internal/db/dbtest"
	"rental-registry/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createNode(t *testing.T, database *gorm.DB, name string, parentID *uint) uint {
	t.Helper()
	node := models.ResourceNode{Name: name, ParentID: parentID}
	require.NoError(t, database.Create(&node).Error)
	return node.ID
}

// buildTree creates:
//
//	building -> floor1 -> apt11 -> room111
//	building -> floor2 -> apt21
func buildTree(t *testing.T, database *gorm.DB) map[string]uint {
	t.Helper()
	ids := map[string]uint{}
	ids["building"] = createNode(t, database, "building", nil)
	b := ids["building"]
	ids["floor1"] = createNode(t, database, "floor1", &b)
	f1 := ids["floor1"]
	ids["floor2"] = createNode(t, database, "floor2", &b)
	f2 := ids["floor2"]
	ids["apt11"] = createNode(t, database, "apt11", &f1)
	a11 := ids["apt11"]
	ids["apt21"] = createNode(t, database, "apt21", &f2)
	ids["room111"] = createNode(t, database, "room111", &a11)
	return ids
}

func TestLevelAndRoot(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	for name, want := range map[string]int{"building": 0, "floor1": 1, "floor2": 1, "apt11": 2, "apt21": 2, "room111": 3} {
		level, err := m.Level(database, ids[name])
		require.NoError(t, err)
		require.Equal(t, want, level, name)

		root, err := m.Root(database, ids[name])
		require.NoError(t, err)
		require.Equal(t, ids["building"], root, name)
	}

	_, err := m.Level(database, 9999)
	require.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestLevelMatchesParentPlusOne(t *testing.T) {
	database := dbtest.New(t)
	buildTree(t, database)
	m := NewManager()

	var nodes []models.ResourceNode
	require.NoError(t, database.Find(&nodes).Error)
	for _, node := range nodes {
		level, err := m.Level(database, node.ID)
		require.NoError(t, err)
		if node.ParentID == nil {
			require.Equal(t, 0, level)
			continue
		}
		parentLevel, err := m.Level(database, *node.ParentID)
		require.NoError(t, err)
		require.Equal(t, parentLevel+1, level)
	}
}

func TestDescendants(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	all, err := m.Descendants(database, ids["building"], true)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{ids["building"], ids["floor1"], ids["floor2"], ids["apt11"], ids["apt21"], ids["room111"]}, all)
	require.Equal(t, ids["building"], all[0])

	below, err := m.Descendants(database, ids["floor1"], false)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{ids["apt11"], ids["room111"]}, below)

	leaf, err := m.Descendants(database, ids["room111"], false)
	require.NoError(t, err)
	require.Empty(t, leaf)

	again, err := m.Descendants(database, ids["building"], true)
	require.NoError(t, err)
	require.Equal(t, all, again)

	_, err = m.Descendants(database, 9999, true)
	require.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestDescendantsIsUnionOfChildren(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	all, err := m.Descendants(database, ids["building"], false)
	require.NoError(t, err)

	union := []uint{}
	for _, child := range []string{"floor1", "floor2"} {
		sub, err := m.Descendants(database, ids[child], true)
		require.NoError(t, err)
		union = append(union, sub...)
	}
	require.ElementsMatch(t, all, union)
}

func TestSetParentRejectsCycles(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	self := ids["floor1"]
	err := m.SetParent(database, ids["floor1"], &self)
	require.True(t, apperror.Is(err, apperror.CodeCircularReference))

	descendant := ids["room111"]
	err = m.SetParent(database, ids["building"], &descendant)
	require.True(t, apperror.Is(err, apperror.CodeCircularReference))

	root, err := m.Root(database, ids["room111"])
	require.NoError(t, err)
	require.Equal(t, ids["building"], root, "rejected move must leave the forest unchanged")
}

func TestSetParentMovesSubtree(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	f2 := ids["floor2"]
	require.NoError(t, m.SetParent(database, ids["apt11"], &f2))

	level, err := m.Level(database, ids["room111"])
	require.NoError(t, err)
	require.Equal(t, 3, level)

	below, err := m.Descendants(database, ids["floor2"], false)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{ids["apt21"], ids["apt11"], ids["room111"]}, below)

	require.NoError(t, m.SetParent(database, ids["apt11"], nil))
	level, err = m.Level(database, ids["room111"])
	require.NoError(t, err)
	require.Equal(t, 1, level)
}

func TestSetParentUnknownNodes(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	missing := uint(9999)
	err := m.SetParent(database, ids["apt11"], &missing)
	require.True(t, apperror.Is(err, apperror.CodeNotFound))

	err = m.SetParent(database, missing, nil)
	require.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestReadsTerminateOnCorruptedCycle(t *testing.T) {
	database := dbtest.New(t)
	a := createNode(t, database, "a", nil)
	b := createNode(t, database, "b", &a)
	// Bypass the manager to plant a cycle a -> b -> a.
	require.NoError(t, database.Model(&models.ResourceNode{}).Where("id = ?", a).Update("parent_id", b).Error)

	m := NewManager()
	_, err := m.Level(database, a)
	require.True(t, apperror.Is(err, apperror.CodeCircularReference))

	_, err = m.Root(database, b)
	require.True(t, apperror.Is(err, apperror.CodeCircularReference))

	desc, err := m.Descendants(database, a, true)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{a, b}, desc)

	c := createNode(t, database, "c", nil)
	err = m.SetParent(database, c, &a)
	require.True(t, apperror.Is(err, apperror.CodeCircularReference), "attaching under a cycle is rejected")
}

func TestValidateParentForNewNode(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	require.NoError(t, m.ValidateParent(database, 0, ids["room111"]))
	err := m.ValidateParent(database, 0, 9999)
	require.True(t, apperror.Is(err, apperror.CodeNotFound))
}

func TestChildrenOrderedByName(t *testing.T) {
	database := dbtest.New(t)
	ids := buildTree(t, database)
	m := NewManager()

	children, err := m.Children(database, []uint{ids["building"], ids["building"]})
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Equal(t, "floor1", children[0].Name)
	require.Equal(t, "floor2", children[1].Name)
}
