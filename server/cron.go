package server

import (
	conf "github.com/happyplace/dashboard/config"
	"github.com/happyplace/dashboard/models"
)

// Field name   | Mandatory? | Allowed values  | Allowed special characters
// ----------   | ---------- | --------------  | --------------------------
// Seconds      | Yes        | 0-59            | * / , -
// Minutes      | Yes        | 0-59            | * / , -
// Hours        | Yes        | 0-23            | * / , -
// Day of month | Yes        | 1-31            | * / , - ?
// Month        | Yes        | 1-12 or JAN-DEC | * / , -
// Day of week  | Yes        | 0-6 or SUN-SAT  | * / , - ?

var (
	jobs = map[string]func(){
		//SS MI HH  DOM MON DOW
		"  0  *     *    *   *   *": models.CompleteOpenHouses,     // Every minute
		" 30  */5   *    *   *   *": models.SendDueCampaigns,       // Every 5 minutes at 30s
		"  0  0     4    *   *   *": models.DeleteOldNotifications, // Every day at 4am
	}
)

// cronJobs adds the configurable self-test schedule to the fixed jobs
func cronJobs() map[string]func() {
	all := map[string]func(){}
	for schedule, job := range jobs {
		all[schedule] = job
	}
	if schedule := conf.ConfigStrings[conf.SelfTestSchedule]; schedule != "" {
		all[schedule] = models.RunDailySelfTests
	}
	return all
}
