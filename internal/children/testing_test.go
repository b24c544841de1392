package children

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	doodbav1 "doodba-operator/pkg/apis/doodba/v1"
)

func testDoodba() *doodbav1.Doodba {
	size := resource.MustParse("5Gi")
	return &doodbav1.Doodba{
		ObjectMeta: metav1.ObjectMeta{Name: "shop", Namespace: "erp", UID: "uid-1"},
		Spec: doodbav1.DoodbaSpec{
			Image: "ghcr.io/acme/odoo",
			Tag:   "16.0",
			Database: doodbav1.Database{
				Host: &corev1.ConfigMapKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: "pg"},
					Key:                  "host",
				},
				Password: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: "pg-creds"},
					Key:                  "password",
				},
				Database: "shop",
			},
			Filestore: doodbav1.FileStore{Size: &size},
			Config:    &doodbav1.OdooConfig{WithoutDemo: true, DBFilter: "^shop$"},
			Instances: []doodbav1.Instance{
				{
					Name:               "web",
					Enabled:            true,
					Replicas:           3,
					ScaleDuringUpgrade: true,
					ExtraConfig:        "workers = 4\n",
					Ports:              []corev1.ContainerPort{{Name: "http", ContainerPort: 8069}},
					Ingress: []doodbav1.InstanceIngress{
						{Enabled: true, Hosts: []string{"shop.example.com"}, Port: 8069},
						{Enabled: false, Hosts: []string{"old.example.com"}, Port: 8069},
					},
				},
				{
					Name:               "queue",
					Enabled:            true,
					Replicas:           2,
					ScaleDuringUpgrade: true,
					Command:            "odoo --workers=0 --load=queue_job",
				},
				{
					Name:     "cron",
					Enabled:  false,
					Replicas: 1,
				},
			},
			BeforeCreate: "click-odoo-initdb",
			BeforeUpdate: "click-odoo-update",
		},
	}
}
